package audithook

// Action constants for audit events.
const (
	// Enrollment actions. The domain prefixes the operation, for example
	// "distributor.approve" or "content.reject".
	ActionDistributorRegister = "distributor.register"
	ActionDistributorApprove  = "distributor.approve"
	ActionDistributorReject   = "distributor.reject"
	ActionDistributorQuit     = "distributor.quit"
	ActionPolicyRegister      = "policy.register"
	ActionPolicyApprove       = "policy.approve"
	ActionPolicyReject        = "policy.reject"
	ActionPolicyQuit          = "policy.quit"
	ActionContentRegister     = "content.register"
	ActionContentApprove      = "content.approve"
	ActionContentReject       = "content.reject"
	ActionContentQuit         = "content.quit"

	// Content actions
	ActionContentRegistered = "content.registered"
	ActionCustodyDelegated  = "custody.delegated"

	// Policy actions
	ActionPolicySetup = "policy.setup"

	// Fee actions
	ActionFeeChanged = "fee.changed"
	ActionFeeRemoved = "fee.removed"

	// Money movement actions
	ActionSettled   = "settlement.completed"
	ActionWithdrawn = "withdrawal.completed"
	ActionDeposited = "deposit.received"
	ActionRefunded  = "deposit.refunded"

	// Access actions
	ActionAccessDenied  = "access.denied"
	ActionAccessRevoked = "access.revoked"

	// Failure actions
	ActionCallFailed = "call.failed"
)

// Resource constants for audit events.
const (
	ResourceDistributor = "distributor"
	ResourcePolicy      = "policy"
	ResourceContent     = "content"
	ResourceFee         = "fee"
	ResourceReceipt     = "receipt"
	ResourceAccess      = "access"
	ResourceCall        = "call"
)

// Category constants for audit events.
const (
	CategoryEnrollment = "enrollment"
	CategoryContent    = "content"
	CategoryPricing    = "pricing"
	CategoryPayment    = "payment"
	CategoryAccess     = "access"
	CategorySystem     = "system"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
