package cli

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Invocation holds the positional arguments of a launch.
type Invocation struct {
	Props     string
	Instances int
	Delay     time.Duration
}

// ParseArgs parses <props-path> <instance-count> <delay-seconds>.
// The properties path is passed through untouched.
func ParseArgs(args []string) (Invocation, error) {
	if len(args) != 3 {
		return Invocation{}, fmt.Errorf("expected 3 arguments (props-path, instance-count, delay-seconds), got %d", len(args))
	}

	instances, err := parseCount("instance-count", args[1])
	if err != nil {
		return Invocation{}, err
	}
	seconds, err := parseCount("delay-seconds", args[2])
	if err != nil {
		return Invocation{}, err
	}
	if int64(seconds) > math.MaxInt64/int64(time.Second) {
		return Invocation{}, fmt.Errorf("invalid delay-seconds %q: value out of range", args[2])
	}

	return Invocation{
		Props:     args[0],
		Instances: instances,
		Delay:     time.Duration(seconds) * time.Second,
	}, nil
}

func parseCount(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", name, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, s)
	}
	return n, nil
}
