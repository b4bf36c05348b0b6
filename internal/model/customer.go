package model

// Tier is a customer's subscription plan.
type Tier string

const (
	TierStarter        Tier = "Starter"
	TierProfessional   Tier = "Professional"
	TierEnterprise     Tier = "Enterprise"
	TierEnterprisePlus Tier = "Enterprise+"
)

// Customer is an account under health monitoring.
type Customer struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Tier           Tier   `json:"tier"`
	TierLimit      int    `json:"tier_limit"`
	AccountManager string `json:"account_manager"`
	ManagerHandle  string `json:"manager_handle"` // chat handle of the account manager, e.g. "@sarah.chen"
	SalesRep       string `json:"sales_rep"`
	Scenario       string `json:"scenario,omitempty"` // synthetic-data scenario label, informational only
}
