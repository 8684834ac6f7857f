package donation

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
	SetDonationID(id string)
}

// RegisterSteps registers donation publishing step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &donationSteps{tc: tc}

	ctx.Step(`^the donor publishes a donation in category "([^"]*)"$`, steps.publishDonation)
	ctx.Step(`^I fetch the donation$`, steps.fetchDonation)
	ctx.Step(`^the donation status should be "([^"]*)"$`, steps.donationStatusShouldBe)
	ctx.Step(`^the claimant leaves the review "([^"]*)"$`, steps.leaveReview)
}

type donationSteps struct {
	tc TestContext
}

func (s *donationSteps) publishDonation(ctx context.Context, category string) error {
	if err := s.tc.SetPersona("donor"); err != nil {
		return err
	}
	body := map[string]any{
		"category":    category,
		"description": "end to end test item",
	}
	if err := s.tc.POST("/donations", body); err != nil {
		return err
	}
	donationID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetDonationID(fmt.Sprintf("%v", donationID))
	return nil
}

func (s *donationSteps) fetchDonation(ctx context.Context) error {
	return s.tc.GET("/donations/" + s.tc.GetDonationID())
}

func (s *donationSteps) donationStatusShouldBe(ctx context.Context, expected string) error {
	if err := s.tc.GET("/donations/" + s.tc.GetDonationID()); err != nil {
		return err
	}
	status, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", status) != expected {
		return fmt.Errorf("expected donation status %q, got %v", expected, status)
	}
	return nil
}

func (s *donationSteps) leaveReview(ctx context.Context, review string) error {
	if err := s.tc.SetPersona("recipient"); err != nil {
		return err
	}
	return s.tc.POST("/donations/"+s.tc.GetDonationID()+"/review", map[string]any{
		"review": review,
	})
}
