package logic

import "math"

func first(in []Input) float64 {
	if len(in) == 0 {
		return 0
	}
	return in[0].Value
}

func countOnes(in []Input) int {
	n := 0
	for _, v := range in {
		if binarize(v.Value) == 1 {
			n++
		}
	}
	return n
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func ruleAnd(in RuleInput) float64 {
	return boolValue(len(in.Inputs) > 0 && countOnes(in.Inputs) == len(in.Inputs))
}

func ruleOr(in RuleInput) float64 {
	return boolValue(countOnes(in.Inputs) > 0)
}

// ruleXor is odd parity, so three active inputs give 1.
func ruleXor(in RuleInput) float64 {
	return boolValue(countOnes(in.Inputs)%2 == 1)
}

func ruleNot(in RuleInput) float64 {
	return 1 - binarize(first(in.Inputs))
}

func rulePass(in RuleInput) float64 {
	return binarize(first(in.Inputs))
}

func ruleVoter(in RuleInput) float64 {
	votes := in.Inputs
	if len(votes) > 3 {
		votes = votes[:3]
	}
	return boolValue(countOnes(votes) >= 2)
}

// band returns the half-width of a comparator's hysteresis band.
func band(d NodeData) float64 {
	return math.Max(0, d.Hysteresis.Float()) / 2
}

// ruleLessThan trips when the input falls below sp-h/2 and releases once it
// reaches sp+h/2.
func ruleLessThan(in RuleInput) float64 {
	x, sp, h := first(in.Inputs), in.Data.Setpoint.Float(), band(in.Data)
	if binarize(in.Prev) == 0 {
		return boolValue(x < sp-h)
	}
	return boolValue(x < sp+h)
}

// ruleGreaterThan trips when the input rises above sp+h/2 and releases once
// it reaches sp-h/2.
func ruleGreaterThan(in RuleInput) float64 {
	x, sp, h := first(in.Inputs), in.Data.Setpoint.Float(), band(in.Data)
	if binarize(in.Prev) == 0 {
		return boolValue(x > sp+h)
	}
	return boolValue(x > sp-h)
}

func delayTicks(in RuleInput) float64 {
	return math.Max(0, in.Data.Delay.Float()) * in.TicksPerSecond
}

// ruleTimerOn is an on-delay: the output rises once the input has been
// active for more than delay ticks and drops as soon as the input does.
func ruleTimerOn(in RuleInput) float64 {
	st, limit := in.State, delayTicks(in)
	if binarize(first(in.Inputs)) == 0 {
		st.Count, st.State = 0, 0
		return 0
	}
	// stop counting one past the limit
	if float64(st.Count) <= limit {
		st.Count++
	}
	st.State = boolValue(float64(st.Count) > limit)
	return st.State
}

// ruleTimerOff is an off-delay: the output follows a rising input at once
// and is held for delay ticks after the input drops.
func ruleTimerOff(in RuleInput) float64 {
	st, limit := in.State, delayTicks(in)
	if binarize(first(in.Inputs)) == 1 {
		st.Count, st.State = 0, 1
		return 1
	}
	if st.State == 0 {
		st.Count = 0
		return 0
	}
	st.Count++
	if float64(st.Count) > limit {
		st.Count, st.State = 0, 0
	}
	return st.State
}

// ruleLatch drives both SR and RS latches: set and reset asserted together
// reset the output. Edges without an s/r handle are taken positionally, set
// first.
func ruleLatch(in RuleInput) float64 {
	var s, r float64
	tagged := false
	for _, v := range in.Inputs {
		switch v.Port {
		case "s":
			tagged = true
			s = math.Max(s, binarize(v.Value))
		case "r":
			tagged = true
			r = math.Max(r, binarize(v.Value))
		}
	}
	if !tagged {
		if len(in.Inputs) > 0 {
			s = binarize(in.Inputs[0].Value)
		}
		if len(in.Inputs) > 1 {
			r = binarize(in.Inputs[1].Value)
		}
	}

	st := in.State
	switch {
	case r == 1:
		st.State = 0
	case s == 1:
		st.State = 1
	}
	return st.State
}
