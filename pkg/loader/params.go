package loader

import (
	"image"

	"github.com/vnykmshr/imgflow/pkg/common/validation"
)

// ResourceID identifies the asset a provider should decode.
type ResourceID string

// DeliveryMode is the quality tier requested from the provider.
type DeliveryMode int

const (
	// HighQuality delivers only the best available image.
	HighQuality DeliveryMode = iota

	// FastFormat delivers one quickly available image, possibly of lower quality.
	FastFormat

	// Opportunistic delivers one or more degraded images followed by the final
	// one. It only makes sense for streaming loads.
	Opportunistic
)

func (m DeliveryMode) String() string {
	switch m {
	case HighQuality:
		return "high_quality"
	case FastFormat:
		return "fast_format"
	case Opportunistic:
		return "opportunistic"
	default:
		return "unknown"
	}
}

// ResizeMode tells the provider how precisely to honor TargetSize.
type ResizeMode int

const (
	ResizeNone ResizeMode = iota
	ResizeFast
	ResizeExact
)

// ContentMode tells the provider how to fit the image into TargetSize.
type ContentMode int

const (
	AspectFit ContentMode = iota
	AspectFill
)

// Params are passed through to the provider unchanged, apart from the
// secondary-degraded flag which is cleared for providers that cannot honor it.
type Params struct {
	// TargetSize is the requested output size in pixels. Zero means original size.
	TargetSize image.Point

	// Delivery is the requested quality tier.
	Delivery DeliveryMode

	// Resize controls resizing precision.
	Resize ResizeMode

	// Content controls aspect fitting.
	Content ContentMode

	// NetworkAccessAllowed lets the provider fetch remote originals.
	NetworkAccessAllowed bool

	// AllowSecondaryDegraded lets the provider send a second degraded image
	// before the final one, when it supports doing so.
	AllowSecondaryDegraded bool
}

// DefaultParams returns the parameters used by most callers: best quality,
// fast resizing, aspect fit, network access and secondary degraded images allowed.
func DefaultParams(targetSize image.Point) Params {
	return Params{
		TargetSize:             targetSize,
		Delivery:               HighQuality,
		Resize:                 ResizeFast,
		Content:                AspectFit,
		NetworkAccessAllowed:   true,
		AllowSecondaryDegraded: true,
	}
}

// Validate checks the parameters for values no provider can honor.
func (p Params) Validate() error {
	if err := validation.ValidateNonNegative("loader", "target_width", float64(p.TargetSize.X)); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("loader", "target_height", float64(p.TargetSize.Y)); err != nil {
		return err
	}
	if err := validation.ValidateInRange("loader", "delivery", int(p.Delivery), int(HighQuality), int(Opportunistic)); err != nil {
		return err
	}
	if err := validation.ValidateInRange("loader", "resize", int(p.Resize), int(ResizeNone), int(ResizeExact)); err != nil {
		return err
	}
	return validation.ValidateInRange("loader", "content", int(p.Content), int(AspectFit), int(AspectFill))
}
