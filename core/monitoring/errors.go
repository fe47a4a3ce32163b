package monitoring

import "errors"

var errSampleRate = errors.New("monitoring: traces_sample_rate must be within [0,1]")
