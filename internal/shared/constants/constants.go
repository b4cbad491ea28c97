package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Database table names
	TableEntitlements      = "entitlements"
	TablePayments          = "payments"
	TablePendingRequests   = "pending_requests"
	TableDeployedContracts = "deployed_contracts"
)
