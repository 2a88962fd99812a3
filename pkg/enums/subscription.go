package enums

// PlanType is a seller subscription tier.
type PlanType string

const (
	PlanTypeFree         PlanType = "free"
	PlanTypeBeginner     PlanType = "beginner"
	PlanTypeIntermediate PlanType = "intermediate"
	PlanTypePro          PlanType = "pro"
)

var planTypes = []PlanType{PlanTypeFree, PlanTypeBeginner, PlanTypeIntermediate, PlanTypePro}

func (p PlanType) String() string { return string(p) }
func (p PlanType) IsValid() bool  { return member(p, planTypes) }
func (p PlanType) IsFree() bool   { return p == PlanTypeFree }

func ParsePlanType(raw string) (PlanType, error) {
	return parse("plan type", raw, planTypes)
}

// Role is the actor role carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

func (r Role) String() string { return string(r) }
func (r Role) IsValid() bool  { return member(r, []Role{RoleCustomer, RoleSeller, RoleAdmin}) }
