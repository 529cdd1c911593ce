package vcs_test

import (
	"context"
	"testing"

	"github.com/atomicobject/assetwatch/pkg/vcs"
	"github.com/stretchr/testify/assert"
)

func TestNoneHookIsNoop(t *testing.T) {
	h := vcs.New("none")
	assert.NoError(t, h.Checkout(context.Background(), "/some/path.mtl"))
}

func TestPerforceHookMissingBinaryFallsBackSilently(t *testing.T) {
	h := vcs.Perforce{Binary: "p4-binary-that-does-not-exist"}
	assert.NoError(t, h.Checkout(context.Background(), "/some/path.mtl"))
}

func TestNewDefaultsToNoneForUnknownKind(t *testing.T) {
	h := vcs.New("bogus")
	assert.IsType(t, vcs.None{}, h)
}

func TestNewSelectsPerforce(t *testing.T) {
	h := vcs.New("p4")
	assert.IsType(t, vcs.Perforce{}, h)
}
