package apierr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGetCodeRecoversFromLocalError(t *testing.T) {
	err := InvalidArgument("bad field %s", "threshold")
	assert.Equal(t, CodeInvalidArgument, GetCode(err))
	assert.Equal(t, 2, ExitCode(err))
}

func TestGetCodeRecoversFromGRPCStatusMessage(t *testing.T) {
	local := PolicyRefusal("quality budget exceeded")
	wireErr := status.Error(codes.Unknown, local.Error())
	assert.Equal(t, CodePolicyRefusal, GetCode(wireErr))
	assert.Equal(t, 4, ExitCode(wireErr))
}

func TestGetCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, GetCode(assert.AnError))
	assert.Equal(t, 1, ExitCode(assert.AnError))
}

func TestToResponseMapsFields(t *testing.T) {
	err := Unavailable("scheduler unreachable")
	resp := ToResponse(err)
	assert.Equal(t, "Unavailable", resp.Status)
	assert.True(t, resp.Retryable)
}
