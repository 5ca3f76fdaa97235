package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/errors"
)

func TestExpandString(t *testing.T) {
	t.Setenv("PERDIEM_TEST_KEY", "abc123")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", want: ""},
		{name: "literal", input: "literal-key", want: "literal-key"},
		{name: "variable", input: "${PERDIEM_TEST_KEY}", want: "abc123"},
		{name: "prefix and suffix", input: "key-${PERDIEM_TEST_KEY}-x", want: "key-abc123-x"},
		{name: "default unused", input: "${PERDIEM_TEST_KEY:-fallback}", want: "abc123"},
		{name: "default used", input: "${PERDIEM_TEST_UNSET:-fallback}", want: "fallback"},
		{name: "empty default", input: "${PERDIEM_TEST_UNSET:-}", want: ""},
		{name: "missing", input: "${PERDIEM_TEST_UNSET}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				assert.Contains(t, err.Error(), "PERDIEM_TEST_UNSET")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	got, err := ReadFile(write("key", "  token  \n\n"))
	require.NoError(t, err)
	assert.Equal(t, "  token  ", got, "only trailing newlines are trimmed")

	_, err = ReadFile(write("empty", "\n"))
	assert.ErrorContains(t, err, "secret file is empty")

	_, err = ReadFile(filepath.Join(dir, "missing"))
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = ReadFile(dir)
	assert.ErrorContains(t, err, "not a regular file")

	_, err = ReadFile("")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Setenv("PERDIEM_TEST_KEY", "from-env")
	path := filepath.Join(t.TempDir(), "gsa_api_key")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o400))

	got, err := Resolve(path, "${PERDIEM_TEST_KEY}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got, "file takes precedence")

	got, err = Resolve("", "${PERDIEM_TEST_KEY}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
