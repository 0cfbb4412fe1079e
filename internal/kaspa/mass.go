package kaspa

// MassEstimator computes the estimated byte mass of a hypothetical
// transaction. It is stateless and pure, so it is safe to call many
// times per selection without synchronization.
type MassEstimator struct {
	maxMassBytes    uint32
	massLimitBuffer float64
	maxInputsPerTx  uint32
}

// NewMassEstimator builds an estimator from the manager config's mass
// fields.
func NewMassEstimator(maxMassBytes uint32, massLimitBuffer float64, maxInputsPerTx uint32) *MassEstimator {
	return &MassEstimator{
		maxMassBytes:    maxMassBytes,
		massLimitBuffer: massLimitBuffer,
		maxInputsPerTx:  maxInputsPerTx,
	}
}

// effectiveMaxMass is the chain's hard limit scaled by the configured
// safety buffer.
func (e *MassEstimator) effectiveMaxMass() uint32 {
	return uint32(float64(e.maxMassBytes) * e.massLimitBuffer)
}

// Estimate computes the mass of a transaction with the given input and
// output counts: mass = inputs*200 + outputs*50 + 100.
func (e *MassEstimator) Estimate(inputs, outputs uint32) MassEstimate {
	breakdown := MassBreakdown{
		Inputs:   inputs * estimatedMassPerInput,
		Outputs:  outputs * 50,
		Overhead: 100,
	}
	mass := breakdown.Inputs + breakdown.Outputs + breakdown.Overhead
	maxAllowed := e.effectiveMaxMass()

	return MassEstimate{
		EstimatedMass:      mass,
		MaxAllowedMass:     maxAllowed,
		Breakdown:          breakdown,
		IsWithinLimit:      mass <= maxAllowed,
		UtilizationPercent: float64(mass) / float64(e.maxMassBytes) * 100,
	}
}

// MaxInputs returns the most inputs a transaction with the given
// output count can carry without exceeding the effective mass ceiling,
// clamped to the configured max_inputs_per_tx. Increasing outputs
// never increases the result.
func (e *MassEstimator) MaxInputs(outputs uint32) uint32 {
	maxAllowed := e.effectiveMaxMass()
	usedByOutputs := outputs*50 + 100

	if usedByOutputs >= maxAllowed {
		return 0
	}

	maxInputs := (maxAllowed - usedByOutputs) / estimatedMassPerInput
	if maxInputs > e.maxInputsPerTx {
		maxInputs = e.maxInputsPerTx
	}
	return maxInputs
}

// WithinLimit reports whether a transaction with the given input and
// output counts stays within the effective mass ceiling.
func (e *MassEstimator) WithinLimit(inputs, outputs uint32) bool {
	return e.Estimate(inputs, outputs).IsWithinLimit
}
