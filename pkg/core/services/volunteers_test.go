package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

func TestImportVolunteers_SkipsExistingCodes(t *testing.T) {
	store := newFakeStore(itVolunteer())

	result, err := ImportVolunteers(context.Background(), store, zap.NewNop(), []db.Volunteer{
		{Org: model.OrgITECPEC, UniqueCode: "it-001", Name: "Asha Again"},
		{Org: model.OrgITECPEC, UniqueCode: "IT-002", Name: "Chandra"},
		{Org: model.OrgCAPEC, UniqueCode: "IT-001", Name: "Same code other org"},
	})
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "Asha", result.Skipped[0].Name)

	require.Len(t, result.Created, 2)
	for _, v := range result.Created {
		assert.NotEmpty(t, v.ID)
	}
	assert.Len(t, store.volunteers, 3)
}
