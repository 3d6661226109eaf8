package config

// Cost returns the dollar cost of a completion with the given token counts.
func (b BackendConfig) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000.0*b.InputCostPer1K +
		float64(outputTokens)/1000.0*b.OutputCostPer1K
}

// VisionSurcharge returns the additional cost of processing imageCount
// images, assuming tokensPerImage vision tokens each. Zero for backends
// without a vision cost.
func (b BackendConfig) VisionSurcharge(imageCount, tokensPerImage int) float64 {
	if imageCount <= 0 || b.VisionCostPer1K <= 0 {
		return 0
	}
	return float64(imageCount) * float64(tokensPerImage) / 1000.0 * b.VisionCostPer1K
}
