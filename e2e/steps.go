package e2e

import (
	"github.com/cucumber/godog"

	"givebridge/e2e/steps/common"
	"givebridge/e2e/steps/donation"
	"givebridge/e2e/steps/match"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (personas, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register donation publishing steps
	donation.RegisterSteps(ctx, tc)

	// Register match lifecycle steps
	match.RegisterSteps(ctx, tc)
}
