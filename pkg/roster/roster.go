package roster

import (
	"fmt"
	"strings"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// Expected column names in a roster sheet
const (
	FieldCode = "Unique Code"
	FieldName = "Name"
	FieldRole = "Role"
	// FieldOrg is optional; rows without it take the default org
	FieldOrg = "Org"
)

var requiredFields = []string{FieldCode, FieldName, FieldRole}

// Parse converts raw roster rows (header first) into volunteer records.
// IDs are left empty for the caller to assign.
func Parse(raw [][]string, defaultOrg model.Org) ([]db.Volunteer, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("no header row found")
	}

	// Build field index map from header row
	fieldIndexes := make(map[string]int)
	for i, cell := range raw[0] {
		fieldIndexes[strings.TrimSpace(cell)] = i
	}
	for _, field := range requiredFields {
		if _, ok := fieldIndexes[field]; !ok {
			return nil, fmt.Errorf("missing required field in header: %s", field)
		}
	}

	getField := func(field string, row []string) string {
		index, ok := fieldIndexes[field]
		if !ok || index >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[index])
	}

	volunteers := make([]db.Volunteer, 0, len(raw)-1)
	seen := make(map[string]int)
	for i := 1; i < len(raw); i++ {
		row := raw[i]

		code := getField(FieldCode, row)
		// Skip empty rows
		if code == "" {
			continue
		}

		org := defaultOrg
		if value := getField(FieldOrg, row); value != "" {
			org = model.ParseOrgHint(value)
		}
		if !org.IsValid() {
			return nil, fmt.Errorf("invalid or missing org for code %s in row %d", code, i+1)
		}

		key := string(org) + "/" + strings.ToLower(code)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("duplicate code %s in %s (rows %d and %d)", code, org, prev, i+1)
		}
		seen[key] = i + 1

		name := getField(FieldName, row)
		if name == "" {
			return nil, fmt.Errorf("missing name for code %s in row %d", code, i+1)
		}

		volunteers = append(volunteers, db.Volunteer{
			Org:        org,
			UniqueCode: code,
			Name:       name,
			Role:       getField(FieldRole, row),
		})
	}

	return volunteers, nil
}
