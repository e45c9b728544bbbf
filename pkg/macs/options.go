package macs

import (
	"fmt"
	"math"
)

// Stretch remaps [Min, Max] onto the output range and applies a gamma curve.
type Stretch struct {
	Gamma float64 `koanf:"gamma" yaml:"gamma" json:"gamma"`
	Min   float64 `koanf:"min" yaml:"min" json:"min"`
	Max   float64 `koanf:"max" yaml:"max" json:"max"`
}

// Devignetting holds the radial vignetting model
// gain(r) = Offset + Factor*(1 + A r^2 + B r^4 + C r^6), r in pixels from (CX, CY).
type Devignetting struct {
	Offset float64 `koanf:"offset" yaml:"offset" json:"offset"`
	Factor float64 `koanf:"factor" yaml:"factor" json:"factor"`
	A      float64 `koanf:"a" yaml:"a" json:"a"`
	B      float64 `koanf:"b" yaml:"b" json:"b"`
	C      float64 `koanf:"c" yaml:"c" json:"c"`
	CX     float64 `koanf:"cx" yaml:"cx" json:"cx"`
	CY     float64 `koanf:"cy" yaml:"cy" json:"cy"`
}

// ColorBalance holds per-channel gains applied to the Bayer mosaic.
type ColorBalance struct {
	R float64 `koanf:"r" yaml:"r" json:"r"`
	G float64 `koanf:"g" yaml:"g" json:"g"`
	B float64 `koanf:"b" yaml:"b" json:"b"`
}

// Distortion holds radial lens distortion coefficients around a pixel centre.
type Distortion struct {
	CXPx float64 `koanf:"cx_px" yaml:"cx_px" json:"cx_px"`
	CYPx float64 `koanf:"cy_px" yaml:"cy_px" json:"cy_px"`
	K1   float64 `koanf:"k1" yaml:"k1" json:"k1"`
	K2   float64 `koanf:"k2" yaml:"k2" json:"k2"`
	K3   float64 `koanf:"k3" yaml:"k3" json:"k3"`
}

// CorrectionOptions parameterises Correct. Stages have no enable flags; a
// stage is switched off by giving it identity values.
type CorrectionOptions struct {
	Stretch       Stretch      `koanf:"stretch" yaml:"stretch" json:"stretch"`
	Devignetting  Devignetting `koanf:"devignetting" yaml:"devignetting" json:"devignetting"`
	ColorBalance  ColorBalance `koanf:"color_balance" yaml:"color_balance" json:"color_balance"`
	Distortion    Distortion   `koanf:"distortion" yaml:"distortion" json:"distortion"`
	ConvertTo8Bit bool         `koanf:"convert_to_8bit" yaml:"convert_to_8bit" json:"convert_to_8bit"`
}

// IdentityOptions returns options under which Correct reproduces the decoded
// plane of the given format.
func IdentityOptions(format PixelFormat) CorrectionOptions {
	return CorrectionOptions{
		Stretch:      Stretch{Gamma: 1, Min: 0, Max: float64(format.MaxValue())},
		Devignetting: Devignetting{Offset: 0, Factor: 0},
		ColorBalance: ColorBalance{R: 1, G: 1, B: 1},
		Distortion:   Distortion{},
	}
}

// Validate rejects values no stage can work with. Per-pixel gain checks
// happen later, once the plane size is known.
func (o CorrectionOptions) Validate() error {
	for name, v := range map[string]float64{
		"stretch.gamma":       o.Stretch.Gamma,
		"stretch.min":         o.Stretch.Min,
		"stretch.max":         o.Stretch.Max,
		"devignetting.offset": o.Devignetting.Offset,
		"devignetting.factor": o.Devignetting.Factor,
		"devignetting.a":      o.Devignetting.A,
		"devignetting.b":      o.Devignetting.B,
		"devignetting.c":      o.Devignetting.C,
		"devignetting.cx":     o.Devignetting.CX,
		"devignetting.cy":     o.Devignetting.CY,
		"color_balance.r":     o.ColorBalance.R,
		"color_balance.g":     o.ColorBalance.G,
		"color_balance.b":     o.ColorBalance.B,
		"distortion.cx_px":    o.Distortion.CXPx,
		"distortion.cy_px":    o.Distortion.CYPx,
		"distortion.k1":       o.Distortion.K1,
		"distortion.k2":       o.Distortion.K2,
		"distortion.k3":       o.Distortion.K3,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidParameter, name, v)
		}
	}
	if o.Stretch.Gamma <= 0 {
		return fmt.Errorf("%w: stretch.gamma %v must be positive", ErrInvalidParameter, o.Stretch.Gamma)
	}
	if o.Stretch.Max <= o.Stretch.Min {
		return fmt.Errorf("%w: stretch range [%v, %v] is empty", ErrInvalidParameter, o.Stretch.Min, o.Stretch.Max)
	}
	return nil
}
