package audio

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput        = errors.New("audio input is empty")
	ErrUnsupportedFormat = errors.New("input is not a supported audio format")
	ErrNoSamples         = errors.New("decoded audio contains no samples")
	ErrTooManyChannels   = errors.New("audio has more than two channels")
)

// DecodeError reports source audio that was recognised but could not be
// decoded. No segmentation runs after it.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s audio: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidationError rejects input before any decoding is attempted.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid audio input: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
