package migerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeCancelledTakesPriorityOverEverything(t *testing.T) {
	assert.Equal(t, ExitCancelled, ExitCode(Configuration("bad", nil), true, true))
}

func TestExitCodeSuccessWhenNoErrorAndNoPartialFailures(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil, false, false))
}

func TestExitCodePartialSuccessWhenNoErrorButSomeProjectsFailed(t *testing.T) {
	assert.Equal(t, ExitPartialSuccess, ExitCode(nil, false, true))
}

func TestExitCodeMapsTypedKindsToTheirDedicatedCode(t *testing.T) {
	assert.Equal(t, ExitConfigError, ExitCode(Configuration("x", nil), false, false))
	assert.Equal(t, ExitAuthFailure, ExitCode(Auth(AuthExpired, "x", nil), false, false))
	assert.Equal(t, ExitValidationFailure, ExitCode(Validation("x", nil), false, false))
}

func TestExitCodeUntypedErrorFallsBackToPartialSuccessWhenFailuresExist(t *testing.T) {
	assert.Equal(t, ExitPartialSuccess, ExitCode(errors.New("boom"), false, true))
}

func TestExitCodeUntypedErrorWithNoFailuresStillReportsValidationFailure(t *testing.T) {
	assert.Equal(t, ExitValidationFailure, ExitCode(errors.New("boom"), false, false))
}
