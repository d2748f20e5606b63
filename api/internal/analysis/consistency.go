package analysis

import "fmt"

// Inconsistencies lists where r departs from the protocol the prompt asks the
// model to follow. It never fails a call; front-ends show it as warnings.
func (r Result) Inconsistencies() []string {
	var out []string

	if r.Confidence < 0 || r.Confidence > 100 {
		out = append(out, fmt.Sprintf("confidence %d is outside 0-100", r.Confidence))
	}

	if r.Signal == SignalNeutral {
		if r.SignalType != SignalTypeNA {
			out = append(out, fmt.Sprintf("NEUTRAL signal carries signalType %s, expected N/A", r.SignalType))
		}
	} else if r.SignalType == SignalTypeNA {
		out = append(out, fmt.Sprintf("%s signal carries signalType N/A", r.Signal))
	}

	switch {
	case r.Signal != SignalNeutral && r.SignalType == SignalTypeNonMTG:
		if r.Confidence < SniperMinConfidence || r.Confidence > SniperMaxConfidence {
			out = append(out, fmt.Sprintf("NON_MTG confidence %d is outside %d-%d", r.Confidence, SniperMinConfidence, SniperMaxConfidence))
		}
	case r.Signal != SignalNeutral && r.SignalType == SignalTypeMTG1Step:
		if r.Confidence < FortressMinConfidence || r.Confidence > FortressMaxConfidence {
			out = append(out, fmt.Sprintf("MTG_1_STEP confidence %d is outside %d-%d", r.Confidence, FortressMinConfidence, FortressMaxConfidence))
		}
	}

	if r.Signal == SignalNeutral || r.SignalType != SignalTypeNA {
		if !InstructionMatches(r.Signal, r.SignalType, r.MTGInstruction) {
			out = append(out, fmt.Sprintf("mtgInstruction does not match %s/%s, expected %q",
				r.Signal, r.SignalType, ExpectedInstruction(r.Signal, r.SignalType)))
		}
	}
	return out
}
