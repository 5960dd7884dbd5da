package nodes

// Node keys. Each node appends its key to RequestState.RouteTaken.
const (
	NodeInput         = "input_node"
	NodeEmergency     = "emergency_node"
	NodeMedicalAdvice = "medical_advice_node"
	NodeEscalate      = "escalate_node"
	NodeIntent        = "intent_node"
	NodeAction        = "action_node"
	NodeNeedsInfo     = "needs_info_node"
	NodeHITL          = "hitl_node"
)

// StageSafety marks a request stopped by the safety screen.
const StageSafety = "safety"
