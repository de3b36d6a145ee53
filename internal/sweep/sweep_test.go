package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pgpay/pgpay-backend/internal/proofstore"
)

type recordingDetacher struct {
	cleared []string
}

func (d *recordingDetacher) ClearProofReferences(_ context.Context, path string) (int64, error) {
	d.cleared = append(d.cleared, path)
	return 1, nil
}

func TestRunDeletesOnlyAgedProofs(t *testing.T) {
	proofs := proofstore.NewMemory()
	now := time.Now()
	proofs.Put("u1/old.png", "image/png", []byte("x"), now.Add(-73*time.Hour))
	proofs.Put("u2/fresh.png", "image/png", []byte("x"), now.Add(-71*time.Hour))

	detacher := &recordingDetacher{}
	report, err := Run(t.Context(), zap.NewNop(), proofs, detacher, 72*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, []string{"u1/old.png"}, report.DeletedPaths)
	assert.Equal(t, []string{"u1/old.png"}, detacher.cleared)

	// The fresh object is untouched.
	remaining, err := proofs.List(t.Context(), "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "u2/fresh.png", remaining[0].Path)
}

func TestRunEmptyBucket(t *testing.T) {
	report, err := Run(t.Context(), zap.NewNop(), proofstore.NewMemory(), &recordingDetacher{}, 72*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
	assert.Zero(t, report.Errors)
}
