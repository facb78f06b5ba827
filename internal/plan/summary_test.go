package plan

import (
	"testing"

	"github.com/tfdigest/tfdigest/pkg/models"
)

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name      string
		lines     []string
		want      models.Summary
		wantFound bool
	}{
		{
			name:      "standard summary",
			lines:     []string{"Plan: 3 to add, 1 to change, 2 to destroy."},
			want:      models.Summary{Add: 3, Change: 1, Destroy: 2},
			wantFound: true,
		},
		{
			name:      "zero counts",
			lines:     []string{"Plan: 0 to add, 0 to change, 0 to destroy."},
			want:      models.Summary{},
			wantFound: true,
		},
		{
			name:      "import prefix ignored",
			lines:     []string{"Plan: 1 to import, 3 to add, 1 to change, 2 to destroy."},
			want:      models.Summary{Add: 3, Change: 1, Destroy: 2},
			wantFound: true,
		},
		{
			name: "no changes line",
			lines: []string{
				"No changes. Your infrastructure matches the configuration.",
			},
			want:      models.Summary{},
			wantFound: true,
		},
		{
			name: "last summary wins",
			lines: []string{
				"Plan: 1 to add, 0 to change, 0 to destroy.",
				"some output between runs",
				"Plan: 4 to add, 2 to change, 1 to destroy.",
			},
			want:      models.Summary{Add: 4, Change: 2, Destroy: 1},
			wantFound: true,
		},
		{
			name:      "decorated summary line",
			lines:     []string{"2024-01-01T00:00:00Z \x1b[1mPlan: 5 to add, 0 to change, 3 to destroy.\x1b[0m"},
			want:      models.Summary{Add: 5, Change: 0, Destroy: 3},
			wantFound: true,
		},
		{
			name:      "missing summary",
			lines:     []string{"  # aws_instance.web will be created"},
			want:      models.Summary{},
			wantFound: false,
		},
		{
			name:      "empty input",
			lines:     nil,
			want:      models.Summary{},
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ParseSummary(tt.lines)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if got != tt.want {
				t.Errorf("summary = %+v, want %+v", got, tt.want)
			}
		})
	}
}
