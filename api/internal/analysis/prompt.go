package analysis

import "strings"

// Instruction texts the model must put into mtgInstruction.
const (
	InstructionNonMTG  = "DO NOT USE MARTINGALE. If trade loses, STOP. Wait for next signal."
	InstructionMTG     = "If the first trade loses, IMMEDIATELY place a [SIGNAL] trade again on the next candle (Double Investment)."
	InstructionNoTrade = "No trade."

	signalPlaceholder = "[SIGNAL]"
)

// Confidence bands of the two non-neutral classes.
const (
	SniperMinConfidence   = 96
	SniperMaxConfidence   = 100
	FortressMinConfidence = 88
	FortressMaxConfidence = 95
)

// Prompt is sent verbatim next to the chart image. Keep it byte-for-byte
// stable: results are only comparable across runs with the same text.
const Prompt = `
  ACT AS "TITAN V2" - THE WORLD'S MOST SKEPTICAL AND PRECISE BINARY TRADING ALGORITHM.
  
  YOUR GOAL: ZERO LOSSES. 
  PHILOSOPHY: "IT IS BETTER TO MISS A TRADE THAN TO LOSE MONEY."

  Analyze the chart image to predict the NEXT 1 or 2 CANDLES.

  ### STEP 1: THE "DEVIL'S ADVOCATE" TEST (CRITICAL)
  Before issuing a signal, try to prove why the trade will FAIL.
  - Is the trend against us?
  - Is there a blocking key level nearby?
  - Is the candle size suspicious (too small/doji or too big/exhaustion)?
  
  IF YOU FIND *ANY* VALID REASON THE TRADE MIGHT FAIL, OUTPUT "NEUTRAL".

  ### STEP 2: CLASSIFICATION PROTOCOL

  #### TYPE A: "SNIPER" (NON-MTG) - 95% ACCURACY REQUIRED
  *Criteria (Must meet ALL):*
  1. **Perfect Trend Alignment**: Trade MUST be with the major trend.
  2. **Clean Breakout & Retest**: Price broke a level and is perfectly retesting it OR Price is rejecting a strong level with a large wick.
  3. **No Obstacles**: Next Support/Resistance is far away.
  *Output Logic:* Signal Type = 'NON_MTG'. Confidence = 96-100%.

  #### TYPE B: "FORTRESS" (1-STEP MTG) - HIGH PROBABILITY
  *Criteria:*
  1. **Strong Momentum**: Price is moving strongly but the last candle was a slight pause or small retracement.
  2. **Logic**: We expect the move to continue immediately, but if the next candle is a small pullback (error), the ONE AFTER THAT is guaranteed to follow the trend.
  *Direction:* MTG MUST ALWAYS BE IN THE SAME DIRECTION AS THE ORIGINAL SIGNAL.
  *Output Logic:* Signal Type = 'MTG_1_STEP'. Confidence = 88-95%.

  ### STEP 3: STRICT RULES
  1. **NEVER** signal 1-Step MTG on a Reversal trade. Reversals must be Sniper (Non-MTG) or nothing. MTG is only for Trend Following.
  2. **NEVER** trade in a chopping/sideways market. Return NEUTRAL.
  3. **NEVER** guess.

  ### STEP 4: GENERATE OUTPUT

  **mtgInstruction Field**:
  - If SignalType is 'NON_MTG': "DO NOT USE MARTINGALE. If trade loses, STOP. Wait for next signal."
  - If SignalType is 'MTG_1_STEP': "If the first trade loses, IMMEDIATELY place a [SIGNAL] trade again on the next candle (Double Investment)."
  - If Neutral: "No trade."

  **Logic Field**:
  - Explain *why* it passed the Devil's Advocate test.
  - E.g., "Trend is strong UP. Price rejected EMA 20. No resistance for 20 pips. Probability of green candle is 98%."

  EXTRACT METADATA:
  - Pair Name & Timeframe (e.g., EUR/USD M1).

  RETURN JSON ONLY.
  `

// ExpectedInstruction returns the mtgInstruction the protocol prescribes for a
// signal/type pair. For MTG_1_STEP the placeholder is filled with the signal.
func ExpectedInstruction(signal Signal, signalType SignalType) string {
	if signal == SignalNeutral {
		return InstructionNoTrade
	}
	switch signalType {
	case SignalTypeNonMTG:
		return InstructionNonMTG
	case SignalTypeMTG1Step:
		return strings.Replace(InstructionMTG, signalPlaceholder, string(signal), 1)
	}
	return ""
}

// InstructionMatches reports whether got belongs to the instruction class of
// signal/signalType. The model may keep "[SIGNAL]" literally or substitute the
// direction, and sometimes trims punctuation, so the check is prefix based.
func InstructionMatches(signal Signal, signalType SignalType, got string) bool {
	got = strings.TrimSpace(got)
	if signal == SignalNeutral {
		return strings.EqualFold(strings.TrimSuffix(got, "."), strings.TrimSuffix(InstructionNoTrade, "."))
	}
	switch signalType {
	case SignalTypeNonMTG:
		return strings.HasPrefix(strings.ToUpper(got), "DO NOT USE MARTINGALE")
	case SignalTypeMTG1Step:
		up := strings.ToUpper(got)
		return strings.HasPrefix(up, "IF THE FIRST TRADE LOSES") && strings.Contains(up, "NEXT CANDLE")
	}
	return false
}
