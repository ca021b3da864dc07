package api

import (
	"github.com/siriusexpedition/sirius/pkg/types"
	"github.com/siriusexpedition/sirius/server/internal/auth"
	"github.com/siriusexpedition/sirius/server/internal/password"
	"github.com/siriusexpedition/sirius/server/internal/visitor"
)

// toVisitorStats maps domain stats onto the wire type.
func toVisitorStats(s visitor.Stats) types.VisitorStats {
	return types.VisitorStats{
		Total:       s.Total,
		Today:       s.Today,
		LastUpdated: s.LastUpdated,
	}
}

func toVisitResponse(res visitor.Result) types.VisitResponse {
	return types.VisitResponse{
		VisitorStats: toVisitorStats(res.Stats),
		Source:       res.Source,
		Counted:      res.Counted,
		VisitorID:    res.VisitorID,
	}
}

func toPasswordCheck(rep password.Report) types.PasswordCheckResponse {
	errs := rep.Errors
	if errs == nil {
		errs = []string{}
	}
	return types.PasswordCheckResponse{
		Valid:  rep.Valid,
		Errors: errs,
		Score:  rep.Score,
		Label:  rep.Label,
		Tier:   string(rep.Tier),
		Color:  rep.Color,
	}
}

func toPasswordRules(r password.Rules) types.PasswordRules {
	return types.PasswordRules{
		MinLength:          r.MinLength,
		RequireUppercase:   r.RequireUppercase,
		RequireLowercase:   r.RequireLowercase,
		RequireNumber:      r.RequireNumber,
		RequireSpecialChar: r.RequireSpecialChar,
	}
}

func toAdminInfo(a *auth.Admin) types.AdminInfo {
	return types.AdminInfo{
		ID:          a.ID,
		Email:       a.Email,
		LastLoginAt: a.LastLoginAt,
	}
}
