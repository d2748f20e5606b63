package analysis

import (
	"encoding/base64"
	"fmt"
	"strings"
)

type Signal string

const (
	SignalCall    Signal = "CALL"
	SignalPut     Signal = "PUT"
	SignalNeutral Signal = "NEUTRAL"
)

func (s Signal) Valid() bool {
	switch s {
	case SignalCall, SignalPut, SignalNeutral:
		return true
	}
	return false
}

// SignalType says whether a follow-up doubled trade is advised. Only meaningful
// for CALL/PUT; a NEUTRAL signal carries SignalTypeNA.
type SignalType string

const (
	SignalTypeNonMTG   SignalType = "NON_MTG"
	SignalTypeMTG1Step SignalType = "MTG_1_STEP"
	SignalTypeNA       SignalType = "N/A"
)

// Label is the display name of the signal class.
func (t SignalType) Label() string {
	switch t {
	case SignalTypeNonMTG:
		return "SNIPER (NON-MTG)"
	case SignalTypeMTG1Step:
		return "1-STEP MTG"
	}
	return "NO TRADE"
}

func (t SignalType) Valid() bool {
	switch t {
	case SignalTypeNonMTG, SignalTypeMTG1Step, SignalTypeNA:
		return true
	}
	return false
}

type Trend string

const (
	TrendUp       Trend = "UPTREND"
	TrendDown     Trend = "DOWNTREND"
	TrendSideways Trend = "SIDEWAYS"
)

func (t Trend) Valid() bool {
	switch t {
	case TrendUp, TrendDown, TrendSideways:
		return true
	}
	return false
}

// Result is the structured answer of the model. JSON names are the wire names
// declared in the response schema.
type Result struct {
	Signal              Signal     `json:"signal"`
	SignalType          SignalType `json:"signalType"`
	Confidence          int        `json:"confidence"`
	Trend               Trend      `json:"trend"`
	Support             string     `json:"support"`
	Resistance          string     `json:"resistance"`
	Logic               string     `json:"logic"`
	PreviousCandlePower string     `json:"previousCandlePower"`
	Pair                string     `json:"pair"`
	Timeframe           string     `json:"timeframe"`
	MTGInstruction      string     `json:"mtgInstruction"`
}

func (r Result) validateEnums() error {
	if !r.Signal.Valid() {
		return fmt.Errorf("signal %q is not one of %s", r.Signal, strings.Join(fieldEnum("signal"), ", "))
	}
	if !r.SignalType.Valid() {
		return fmt.Errorf("signalType %q is not one of %s", r.SignalType, strings.Join(fieldEnum("signalType"), ", "))
	}
	if !r.Trend.Valid() {
		return fmt.Errorf("trend %q is not one of %s", r.Trend, strings.Join(fieldEnum("trend"), ", "))
	}
	return nil
}

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEWEBP = "image/webp"
)

// SupportedMIMETypes are the image types the remote models accept.
var SupportedMIMETypes = []string{MIMEPNG, MIMEJPEG, MIMEWEBP}

func IsSupportedMIME(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, m := range SupportedMIMETypes {
		if m == mime {
			return true
		}
	}
	return false
}

// Image is the payload of one analysis request.
type Image struct {
	Data     []byte
	MIMEType string
}

func (img Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// DataURL renders the image as data:<mime>;base64,<payload>.
func (img Image) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + img.Base64()
}
