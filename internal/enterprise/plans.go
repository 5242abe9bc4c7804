package enterprise

// Plan tiers offered to organizations.
const (
	PlanBasic        = "basic"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// DefaultMaxUsers is the seat limit applied at organization creation, before
// any subscription is activated.
const DefaultMaxUsers = 5

// Plan maps a tier to its gateway price, seat limit and feature set.
type Plan struct {
	Type     string
	PriceID  string
	MaxUsers int
}

var plans = map[string]Plan{
	PlanBasic:        {Type: PlanBasic, PriceID: "price_enterprise_basic_monthly", MaxUsers: 10},
	PlanProfessional: {Type: PlanProfessional, PriceID: "price_enterprise_pro_monthly", MaxUsers: 25},
	PlanEnterprise:   {Type: PlanEnterprise, PriceID: "price_enterprise_unlimited_monthly", MaxUsers: 100},
}

// PlanByType resolves a plan tier, reporting false for unknown tiers.
func PlanByType(planType string) (Plan, bool) {
	p, ok := plans[planType]
	return p, ok
}

// BaseFeatures is the feature set every organization starts with.
func BaseFeatures() []string {
	return []string{
		"team-collaboration",
		"contract-sharing",
		"analytics-dashboard",
	}
}

// FeaturesByPlan returns the feature list unlocked by a plan tier. Unknown
// tiers fall back to the base set.
func FeaturesByPlan(planType string) []string {
	base := BaseFeatures()
	switch planType {
	case PlanProfessional:
		return append(base,
			"advanced-analytics",
			"custom-templates",
			"bulk-upload",
		)
	case PlanEnterprise:
		return append(base,
			"advanced-analytics",
			"custom-templates",
			"bulk-upload",
			"sso-integration",
			"audit-logs",
			"api-access",
			"dedicated-support",
		)
	default:
		return base
	}
}
