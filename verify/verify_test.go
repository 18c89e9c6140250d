package verify

import (
	"bytes"
	"context"
	"errors"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mmverify/internal"
	"github.com/gnoswap-labs/mmverify/internal/types"
)

type mockVerifyEngine struct {
	mock.Mock
}

func (m *mockVerifyEngine) Check(ctx context.Context, filePath string) (*internal.FileReport, error) {
	args := m.Called(filePath)
	report, _ := args.Get(0).(*internal.FileReport)
	return report, args.Error(1)
}

func (m *mockVerifyEngine) CheckSource(ctx context.Context, source []byte) (*internal.FileReport, error) {
	args := m.Called(source)
	report, _ := args.Get(0).(*internal.FileReport)
	return report, args.Error(1)
}

func (m *mockVerifyEngine) IgnoreRule(rule string) {
	m.Called(rule)
}

func (m *mockVerifyEngine) IgnorePath(path string) {
	m.Called(path)
}

func reportFor(filename, rule string) *internal.FileReport {
	r := &internal.FileReport{Filename: filename}
	if rule != "" {
		r.Issues = []types.Issue{{
			Rule:     rule,
			Filename: filename,
			Start:    token.Position{Filename: filename, Line: 1, Column: 1},
			End:      token.Position{Filename: filename, Line: 1, Column: 1},
			Message:  "Test issue",
		}}
	}
	return r
}

func createTempFiles(t *testing.T, dir string, fileNames ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(fileNames))
	for _, fileName := range fileNames {
		filePath := filepath.Join(dir, fileName)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, nil, 0o644))
		paths = append(paths, filePath)
	}
	return paths
}

func TestProcessFile(t *testing.T) {
	t.Parallel()
	expected := reportFor("test.mm", "test-rule")
	mockEngine := new(mockVerifyEngine)
	mockEngine.On("Check", "test.mm").Return(expected, nil)

	report, err := ProcessFile(context.Background(), mockEngine, "test.mm")

	assert.NoError(t, err)
	assert.Equal(t, expected, report)
	mockEngine.AssertExpectations(t)
}

func TestProcessSources(t *testing.T) {
	t.Parallel()
	first := reportFor("", "rule1")
	second := reportFor("", "rule2")

	mockEngine := new(mockVerifyEngine)
	mockEngine.On("CheckSource", []byte("$c a $.")).Return(first, nil)
	mockEngine.On("CheckSource", []byte("$c b $.")).Return(second, nil)

	reports, err := ProcessSources(context.Background(), zap.NewNop(), mockEngine,
		[][]byte{[]byte("$c a $."), []byte("$c b $.")})

	assert.NoError(t, err)
	assert.Equal(t, []*internal.FileReport{first, second}, reports)
	mockEngine.AssertExpectations(t)

	failing := new(mockVerifyEngine)
	failing.On("CheckSource", []byte("x")).Return(nil, errors.New("boom"))
	_, err = ProcessSources(context.Background(), zap.NewNop(), failing, [][]byte{[]byte("x")})
	assert.Error(t, err)
}

func TestProcessPath(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "a.mm", "notes.txt", "sub/b.mm")

	mockEngine := new(mockVerifyEngine)
	mockEngine.On("Check", paths[0]).Return(reportFor(paths[0], "rule1"), nil)
	mockEngine.On("Check", paths[2]).Return(reportFor(paths[2], ""), nil)

	var progress bytes.Buffer
	reports, err := ProcessPath(context.Background(), zap.NewNop(), mockEngine, tempDir,
		Options{Extensions: []string{".mm"}, Workers: 2, Progress: &progress}, ProcessFile)

	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, paths[0], reports[0].Filename)
	assert.Equal(t, paths[2], reports[1].Filename)
	assert.True(t, reports[0].Failed())
	assert.False(t, reports[1].Failed())
	mockEngine.AssertExpectations(t)
	mockEngine.AssertNotCalled(t, "Check", paths[1])
}

func TestProcessPath_ReadErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "a.mm", "b.mm")

	mockEngine := new(mockVerifyEngine)
	mockEngine.On("Check", paths[0]).Return(nil, errors.New("permission denied"))
	mockEngine.On("Check", paths[1]).Return(reportFor(paths[1], ""), nil)

	reports, err := ProcessPath(context.Background(), nil, mockEngine, tempDir,
		Options{Extensions: []string{".mm"}}, ProcessFile)

	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.True(t, reports[0].Failed())
	assert.Equal(t, ReadErrorRule, reports[0].Issues[0].Rule)
	assert.False(t, reports[1].Failed())
}

func TestProcessPath_SingleFile(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "db.txt")

	mockEngine := new(mockVerifyEngine)
	mockEngine.On("Check", paths[0]).Return(reportFor(paths[0], ""), nil)

	reports, err := ProcessPath(context.Background(), nil, mockEngine, paths[0],
		Options{Extensions: []string{".mm"}}, ProcessFile)

	require.NoError(t, err)
	require.Len(t, reports, 1)
	mockEngine.AssertExpectations(t)

	_, err = ProcessPath(context.Background(), nil, mockEngine, filepath.Join(tempDir, "missing.mm"),
		Options{}, ProcessFile)
	assert.Error(t, err)
}

func TestProcessPathContextCancellation(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	createTempFiles(t, tempDir, "a.mm", "b.mm", "c.mm")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := new(mockVerifyEngine)
	_, err := ProcessPath(ctx, nil, engine, tempDir, Options{Extensions: []string{".mm"}}, ProcessFile)
	assert.ErrorIs(t, err, context.Canceled)
	engine.AssertNotCalled(t, "Check", mock.Anything)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "test1.mm", "test2.mm")

	mockEngine := new(mockVerifyEngine)
	mockEngine.On("Check", paths[0]).Return(reportFor(paths[0], "rule1"), nil)
	mockEngine.On("Check", paths[1]).Return(reportFor(paths[1], "rule2"), nil)

	reports, err := ProcessFiles(context.Background(), zap.NewNop(), mockEngine, paths,
		Options{Extensions: []string{".mm"}}, ProcessFile)

	assert.NoError(t, err)
	assert.Len(t, reports, 2)
	mockEngine.AssertExpectations(t)

	_, err = ProcessFiles(context.Background(), zap.NewNop(), mockEngine,
		[]string{filepath.Join(tempDir, "missing")}, Options{}, ProcessFile)
	assert.Error(t, err)
}

// Real databases, verified concurrently, do not affect each other.
func TestProcessPathWithEngine(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	good := "$c wff $. $v p $. wp $f wff p $. th1 $p wff p $= wp $.\n"
	bad := "$c wff $. $v p $. wp $f wff p $. th1 $p wff p $= bogus $.\n"
	for i, content := range []string{good, bad, good} {
		name := filepath.Join(tempDir, string(rune('a'+i))+".mm")
		require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	}

	engine, err := New(tempDir, DefaultConfig(), zap.NewNop(), NewRunID())
	require.NoError(t, err)

	reports, err := ProcessPath(context.Background(), nil, engine, tempDir,
		Options{Extensions: []string{".mm"}, Workers: 3}, ProcessFile)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.False(t, reports[0].Failed())
	assert.True(t, reports[1].Failed())
	assert.Equal(t, "undeclared-label", reports[1].Issues[0].Rule)
	assert.False(t, reports[2].Failed())
	assert.Equal(t, 1, reports[2].Stats.Theorems)
}
