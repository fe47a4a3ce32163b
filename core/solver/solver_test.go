package solver

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSolutionErr(t *testing.T) {
	assert.NoError(t, (&Solution{Status: StatusOptimal}).Err("bnb"))

	err := (&Solution{Status: StatusInfeasible, Message: "row power_balance[b1,3]"}).Err("glpk")
	assert.ErrorIs(t, err, ErrInfeasible)
	assert.Equal(t, "glpk: problem infeasible: row power_balance[b1,3]", err.Error())

	err = fmt.Errorf("plan: %w", (&Solution{Status: StatusUnbounded}).Err("bnb"))
	assert.ErrorIs(t, err, ErrUnbounded)
	assert.NotErrorIs(t, err, ErrInfeasible)

	err = (&Solution{Status: StatusNodeLimit}).Err("bnb")
	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, StatusNodeLimit, se.Status)
	assert.Equal(t, "bnb: terminated with status node_limit", err.Error())
}

func TestUnavailableErrorUnwraps(t *testing.T) {
	cause := errors.New("exec: \"glpsol\": executable file not found in $PATH")
	err := &UnavailableError{Solver: "glpk", Err: cause}
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "interrupted", StatusInterrupted.String())
	assert.Equal(t, "status(42)", Status(42).String())
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, DefaultType, c.Type)
	assert.Equal(t, 5*time.Minute, c.TimeLimit())
	assert.NoError(t, c.Validate())

	c.TimeLimitSeconds = -1
	assert.Error(t, c.Validate())
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(Config{Type: "does-not-exist"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFailedStatusMapsToStatusError(t *testing.T) {
	assert.Equal(t, "error", StatusFailed.String())

	err := (&Solution{Status: StatusFailed, Message: "lp relaxation at depth 2"}).Err("bnb")
	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, StatusFailed, se.Status)
	assert.Equal(t, "bnb", se.Solver)
}
