package models

// Plan is a user's subscription tier.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanBasic    Plan = "basic"
	PlanPremium  Plan = "premium"
	PlanBusiness Plan = "business"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPremium, PlanBusiness:
		return true
	}
	return false
}

// Checks returns the number of content checks granted by the plan.
func (p Plan) Checks() int {
	switch p {
	case PlanBasic:
		return 25
	case PlanPremium:
		return 100
	case PlanBusiness:
		return 500
	default:
		return 3
	}
}

// MaxFileSize returns the largest upload the plan accepts, in bytes.
func (p Plan) MaxFileSize() int64 {
	switch p {
	case PlanBasic:
		return 25 << 20
	case PlanPremium:
		return 100 << 20
	case PlanBusiness:
		return 500 << 20
	default:
		return 5 << 20
	}
}

// StorageLimit returns the total storage quota of the plan, in bytes.
func (p Plan) StorageLimit() int64 {
	switch p {
	case PlanBasic:
		return 1 << 30
	case PlanPremium:
		return 10 << 30
	case PlanBusiness:
		return 100 << 30
	default:
		return 100 << 20
	}
}

// AllowsContentType reports whether the plan may upload the given content
// category. Video uploads require at least the premium tier.
func (p Plan) AllowsContentType(contentType string) bool {
	if len(contentType) >= 5 && contentType[:5] == "video" {
		return p == PlanPremium || p == PlanBusiness
	}
	return true
}
