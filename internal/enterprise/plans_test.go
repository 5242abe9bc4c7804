package enterprise

import "testing"

func TestPlanByType(t *testing.T) {
	cases := []struct {
		planType string
		priceID  string
		maxUsers int
	}{
		{PlanBasic, "price_enterprise_basic_monthly", 10},
		{PlanProfessional, "price_enterprise_pro_monthly", 25},
		{PlanEnterprise, "price_enterprise_unlimited_monthly", 100},
	}
	for _, tc := range cases {
		plan, ok := PlanByType(tc.planType)
		if !ok {
			t.Fatalf("plan %s not found", tc.planType)
		}
		if plan.PriceID != tc.priceID || plan.MaxUsers != tc.maxUsers {
			t.Fatalf("plan %s: got %+v", tc.planType, plan)
		}
	}
	if _, ok := PlanByType("platinum"); ok {
		t.Fatal("unknown plan must not resolve")
	}
}

func TestFeaturesByPlan(t *testing.T) {
	base := FeaturesByPlan("anything-else")
	if len(base) != 3 {
		t.Fatalf("expected 3 base features, got %v", base)
	}
	pro := FeaturesByPlan(PlanProfessional)
	if len(pro) != 6 {
		t.Fatalf("expected 6 professional features, got %v", pro)
	}
	ent := FeaturesByPlan(PlanEnterprise)
	if len(ent) != 10 {
		t.Fatalf("expected 10 enterprise features, got %v", ent)
	}
	want := map[string]bool{"sso-integration": false, "audit-logs": false, "api-access": false, "dedicated-support": false}
	for _, f := range ent {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for f, seen := range want {
		if !seen {
			t.Fatalf("enterprise tier missing feature %s", f)
		}
	}
}
