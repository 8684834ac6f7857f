package models

import dErrors "givebridge/pkg/domain-errors"

var errInvalidDecision = dErrors.New(dErrors.CodeInvalidInput, "decision must be accept or reject")
