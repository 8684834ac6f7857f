package match

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SetPersona(persona string) error
	POST(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetDonationID() string
	GetMatchID() string
	SetMatchID(id string)
}

// RegisterSteps registers match lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &matchSteps{tc: tc}

	ctx.Step(`^the recipient claims the donation$`, steps.claimDonation)
	ctx.Step(`^the donor (accepts|rejects) the match$`, steps.decideMatch)
	ctx.Step(`^the "([^"]*)" confirms the hand-off$`, steps.confirmHandoff)
	ctx.Step(`^the match status should be "([^"]*)"$`, steps.matchStatusShouldBe)
	ctx.Step(`^the "([^"]*)" rates the match with score (\d+)$`, steps.rateMatch)
}

type matchSteps struct {
	tc TestContext
}

func (s *matchSteps) claimDonation(ctx context.Context) error {
	if err := s.tc.SetPersona("recipient"); err != nil {
		return err
	}
	if err := s.tc.POST("/donations/"+s.tc.GetDonationID()+"/claims", nil); err != nil {
		return err
	}
	matchID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetMatchID(fmt.Sprintf("%v", matchID))
	return nil
}

func (s *matchSteps) decideMatch(ctx context.Context, verb string) error {
	if err := s.tc.SetPersona("donor"); err != nil {
		return err
	}
	decision := "accept"
	if verb == "rejects" {
		decision = "reject"
	}
	return s.tc.POST("/matches/"+s.tc.GetMatchID()+"/decision", map[string]any{
		"decision": decision,
	})
}

func (s *matchSteps) confirmHandoff(ctx context.Context, persona string) error {
	if err := s.tc.SetPersona(persona); err != nil {
		return err
	}
	return s.tc.POST("/matches/"+s.tc.GetMatchID()+"/confirm", nil)
}

func (s *matchSteps) matchStatusShouldBe(ctx context.Context, expected string) error {
	if err := s.tc.GET("/matches/" + s.tc.GetMatchID()); err != nil {
		return err
	}
	status, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", status) != expected {
		return fmt.Errorf("expected match status %q, got %v", expected, status)
	}
	return nil
}

func (s *matchSteps) rateMatch(ctx context.Context, persona string, score int) error {
	if err := s.tc.SetPersona(persona); err != nil {
		return err
	}
	return s.tc.POST("/matches/"+s.tc.GetMatchID()+"/ratings", map[string]any{
		"score": score,
	})
}
