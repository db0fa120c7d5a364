// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package cfg_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dzpbip/pbip-checker/internal/cfg"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	c := cfg.DefaultConfig()
	assert.True(t, c.Reorder)
	assert.True(t, c.SdpReduce)
	assert.False(t, c.BddOnly)
	assert.False(t, c.Rename)
	assert.Equal(t, 1, c.Verbosity)
}

func TestNewContextCarriesConfigAndLogger(t *testing.T) {
	start := time.Unix(0, 0)
	ctx := cfg.NewContext(cfg.DefaultConfig(), start)
	assert.NotNil(t, ctx.Log)
	assert.Equal(t, start, ctx.Start)
}

func TestWithComponentAddsField(t *testing.T) {
	ctx := cfg.NewContext(cfg.DefaultConfig(), time.Unix(0, 0))
	tagged := ctx.WithComponent("driver")
	assert.NotNil(t, tagged.Log)
	assert.NotSame(t, ctx.Log, tagged.Log)
}

func TestErrorKindStrings(t *testing.T) {
	cases := []struct {
		kind cfg.Kind
		want string
	}{
		{cfg.Parse, "parse error"},
		{cfg.Reference, "reference error"},
		{cfg.Implication, "implication failure"},
		{cfg.ModeViolation, "mode violation"},
		{cfg.Internal, "internal invariant violation"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.kind.String())
	}
}

func TestParseErrorfFormatsFileAndLine(t *testing.T) {
	err := cfg.ParseErrorf("proof.pbip", 12, "unexpected token %q", "~~")
	assert.Equal(t, `parse error: proof.pbip:12: unexpected token "~~"`, err.Error())
}

func TestReferenceErrorfFormatsStep(t *testing.T) {
	err := cfg.ReferenceErrorf(5, "hint %d is not a prior step", 9)
	assert.Equal(t, "reference error: step 5: hint 9 is not a prior step", err.Error())
}

func TestErrorWrapUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := cfg.InternalErrorf(-1, "bucket overflow").Wrap(cause)
	assert.Same(t, cause, errors.Unwrap(err))
}
