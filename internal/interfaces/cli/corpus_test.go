package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

func TestCorpusBuildCmd_FileSink(t *testing.T) {
	outDir := t.TempDir()
	t.Setenv("PATENTDOC_CORPUS_FILE_DIR", outDir)
	t.Setenv("PATENTDOC_CORPUS_USPC", "310/1")

	bulk := motorDoc + "PATN\nWKU  039305856\nTTL  PUMP\nCLAS\nOCL  417  1\n"
	path := writeFile(t, "pftaps19760106.txt", bulk)

	out, _, err := run(t, "", "corpus", "build", path, "--workers", "2", "-o", "json")
	require.NoError(t, err)

	var res struct {
		Source       string         `json:"source"`
		Run          string         `json:"run"`
		Total        int            `json:"total"`
		Matched      int            `json:"matched"`
		ByProvenance map[string]int `json:"by_provenance"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, map[string]int{"uspc": 1}, res.ByProvenance)
	assert.Equal(t, "files:"+path, res.Source)

	records, err := filepath.Glob(filepath.Join(outDir, res.Run, "*.json"))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCorpusBuildCmd_Errors(t *testing.T) {
	t.Setenv("PATENTDOC_CORPUS_FILE_DIR", t.TempDir())
	t.Setenv("PATENTDOC_CORPUS_USPC", "310/1")
	path := writeFile(t, "bulk.txt", motorDoc)

	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"corpus", "build"}},
		{"minio disabled", []string{"corpus", "build", "--minio-prefix", "2001/"}},
		{"minio and files", []string{"corpus", "build", "--minio-prefix", "2001/", path}},
		{"sink without store", []string{"corpus", "build", "--sinks", "neo4j", path}},
		{"unknown sink", []string{"corpus", "build", "--sinks", "s3", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, "", tt.args...)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), err.Error())
		})
	}
}

func TestCorpusBuildCmd_BadFormat(t *testing.T) {
	t.Setenv("PATENTDOC_CORPUS_USPC", "310/1")
	_, _, err := run(t, "", "corpus", "build", "--format", "pdf", "x.txt")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedFormat))
}

func TestCorpusPublishCmd_RequiresKafka(t *testing.T) {
	_, _, err := run(t, "", "corpus", "publish", "bulk.txt")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	assert.Contains(t, err.Error(), "messaging.kafka.enabled")
}

func TestFormatsCmd_Table(t *testing.T) {
	out, _, err := run(t, "", "formats", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "redbook-grant")
	assert.Contains(t, out, "application/xml")
}

//Personal.AI order the ending
