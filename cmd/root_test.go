package cmd

import (
	"errors"
	"fmt"
	"testing"

	"goblin/internal/gatewayerr"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeForMapsGatewayErrorKinds(t *testing.T) {
	assert.Equal(t, ExitCodeSuccess, exitCodeFor(nil))
	assert.Equal(t, 8, exitCodeFor(gatewayerr.ConfigInvalid("bad config")))
	assert.Equal(t, 6, exitCodeFor(gatewayerr.Timeout("slow backend")))
	assert.Equal(t, 4, exitCodeFor(gatewayerr.BackendUnavailable("down")))
	assert.Equal(t, 7, exitCodeFor(gatewayerr.UnknownCapability("nope")))
}

// TestExitCodeForUnwrapsFmtErrorfWrapping covers the actual shape commands
// return: runValidateConfig and runServe both wrap config/bootstrap errors
// with fmt.Errorf("...: %w", err) before returning them to cobra, so the
// exit-code lookup has to see through that wrapping, not just a bare
// *gatewayerr.Error.
func TestExitCodeForUnwrapsFmtErrorfWrapping(t *testing.T) {
	wrapped := fmt.Errorf("initialize services: %w", gatewayerr.ConfigInvalid("bad config"))
	assert.Equal(t, 8, exitCodeFor(wrapped))

	doubleWrapped := fmt.Errorf("failed to initialize gateway: %w", wrapped)
	assert.Equal(t, 8, exitCodeFor(doubleWrapped))
}

func TestExitCodeForFallsBackToGenericOnPlainError(t *testing.T) {
	assert.Equal(t, ExitCodeError, exitCodeFor(errors.New("boom")))
}
