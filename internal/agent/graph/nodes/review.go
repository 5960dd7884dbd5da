package nodes

import (
	"fmt"
	"strings"

	"github.com/chative/appointment-assistant/internal/agent/model"
	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// ApplyReviewDecision resolves a parked review. Approve sends the draft as-is,
// edit sends the reviewer's text with the sign-off, reject escalates.
func ApplyReviewDecision(s *model.RequestState, d model.ReviewDecision, clinic model.ClinicConfig) error {
	if s == nil || s.Review == nil {
		return model.ErrReviewNotFound
	}
	if !s.AwaitingReview() {
		return model.ErrReviewAlreadyResolved
	}

	switch d.Action {
	case model.ReviewApprove:
		s.HITLApproved = true
		s.Finish(model.StatusReady, s.Review.Draft)
	case model.ReviewEdit:
		text := strings.TrimSpace(d.Text)
		if text == "" {
			return model.ErrEmptyEdit
		}
		s.HITLApproved = true
		s.Finish(model.StatusReady, text+clinic.SignOff())
	case model.ReviewReject:
		s.HITLApproved = false
		s.Finish(model.StatusEscalate, RejectMessage(clinic))
	default:
		return errx.BadRequest(fmt.Errorf("unknown review action %q", d.Action))
	}

	s.Review.Decision = d.Action
	logx.Info().
		Str("run_id", s.RunID).
		Str("node", NodeHITL).
		Str("decision", string(d.Action)).
		Str("final_status", string(s.FinalStatus)).
		Msg("Review resolved")
	return nil
}
