package verify

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/mmverify/internal"
	"github.com/gnoswap-labs/mmverify/internal/types"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	tests := []struct {
		name     string
		content  *string
		expected Config
		wantErr  bool
	}{
		{
			name:     "missing file",
			expected: DefaultConfig(),
		},
		{
			name:     "empty file",
			content:  ptr(""),
			expected: DefaultConfig(),
		},
		{
			name: "overrides",
			content: ptr(`name: setmm
rules:
  incomplete-proof:
    severity: ERROR
extensions:
  - .mm
  - .mmx
`),
			expected: Config{
				Name: "setmm",
				Rules: map[string]types.ConfigRule{
					"incomplete-proof": {Severity: types.SeverityError},
				},
				Extensions: []string{".mm", ".mmx"},
			},
		},
		{
			name:     "lower case severity",
			content:  ptr("rules:\n  incomplete-proof:\n    severity: off\n"),
			expected: withRule(DefaultConfig(), "incomplete-proof", types.SeverityOff),
		},
		{
			name:    "unknown severity",
			content: ptr("rules:\n  incomplete-proof:\n    severity: LOUD\n"),
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			content: ptr("rules: [\n"),
			wantErr: true,
		},
	}

	for i, tt := range tests {
		tt := tt
		path := filepath.Join(tempDir, string(rune('a'+i))+".yaml")
		if tt.content != nil {
			require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
		}
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config, err := LoadConfig(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, config)
		})
	}
}

func TestConfigSave(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultConfigPath)

	require.NoError(t, DefaultConfig().Save(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "severity: WARNING")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestReport(t *testing.T) {
	t.Parallel()
	report := &Report{
		RunID: "run",
		Files: []*internal.FileReport{
			{Filename: "b.mm", Issues: []types.Issue{{Rule: "incomplete-proof", Filename: "b.mm", Severity: types.SeverityWarning}}},
			{Filename: "a.mm", Issues: []types.Issue{{Rule: "syntax-error", Filename: "inc.mm", Severity: types.SeverityError}}},
		},
	}

	assert.True(t, report.Failed())
	report.Files[1].Issues[0].Severity = types.SeverityInfo
	assert.False(t, report.Failed())

	byFile, files := report.IssuesByFile()
	assert.Equal(t, []string{"b.mm", "inc.mm"}, files)
	assert.Len(t, byFile["inc.mm"], 1)

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run", decoded["run_id"])
	assert.Contains(t, buf.String(), `"severity": "WARNING"`)
}

func ptr(s string) *string {
	return &s
}

func withRule(c Config, rule string, severity types.Severity) Config {
	c.Rules[rule] = types.ConfigRule{Severity: severity}
	return c
}
