package covidpipe

import (
	"fmt"
	"strings"
)

const (
	MsgUnknownOrganization        = "unknown organization"
	MsgInvalidReferralCode        = "invalid referral code"
	MsgBarcodeCollision           = "barcode already generated in this second"
	MsgStatusDowngrade            = "sample status downgrade refused"
	MsgIllegalStatusTransition    = "illegal sample status transition"
	MsgResultDowngrade            = "review may not pass a previously failed control"
	MsgSampleListNotAdmissible    = "sample list contains rows that are not ok"
	MsgDuplicateBarcodeInBatch    = "duplicate barcode within batch"
	MsgContainersAlreadyCreated   = "containers were already created on this step"
	MsgServiceRequestNotFound     = "service request not found"
	MsgMultipleServiceRequests    = "more than one service request matched"
	MsgAnonymousAlreadyExists     = "anonymous service request already exists"
	MsgAnonymousCannotCreate      = "partner did not recognize the referral code"
	MsgDiagnosisReportRejected    = "diagnosis report was not accepted"
	MsgUnregisteredPatient        = "patient has no usable identifier"
	MsgPartnerCallFailed          = "partner call failed"
)

var (
	ErrUnknownOrganization      = fmt.Errorf(MsgUnknownOrganization)
	ErrInvalidReferralCode      = fmt.Errorf(MsgInvalidReferralCode)
	ErrBarcodeCollision         = fmt.Errorf(MsgBarcodeCollision)
	ErrStatusDowngrade          = fmt.Errorf(MsgStatusDowngrade)
	ErrIllegalStatusTransition  = fmt.Errorf(MsgIllegalStatusTransition)
	ErrResultDowngrade          = fmt.Errorf(MsgResultDowngrade)
	ErrSampleListNotAdmissible  = fmt.Errorf(MsgSampleListNotAdmissible)
	ErrDuplicateBarcodeInBatch  = fmt.Errorf(MsgDuplicateBarcodeInBatch)
	ErrContainersAlreadyCreated = fmt.Errorf(MsgContainersAlreadyCreated)
	ErrServiceRequestNotFound   = fmt.Errorf(MsgServiceRequestNotFound)
	ErrMultipleServiceRequests  = fmt.Errorf(MsgMultipleServiceRequests)
	ErrAnonymousAlreadyExists   = fmt.Errorf(MsgAnonymousAlreadyExists)
	ErrAnonymousCannotCreate    = fmt.Errorf(MsgAnonymousCannotCreate)
	ErrDiagnosisReportRejected  = fmt.Errorf(MsgDiagnosisReportRejected)
	ErrUnregisteredPatient      = fmt.Errorf(MsgUnregisteredPatient)
	ErrPartnerCallFailed        = fmt.Errorf(MsgPartnerCallFailed)
)

// IntegrationError labels a partner response that could not be interpreted
// with the identifier tuple it was produced for.
type IntegrationError struct {
	OrgURI       string
	ReferralCode string
	Field        string
	Err          error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration error for %s|%s, field %q: %v", e.OrgURI, e.ReferralCode, e.Field, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// ValidationError rejects one out-of-range field before anything leaves the
// process.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// DeferredErrors accumulates row level failures so that a single bad barcode
// does not mask the remaining rows. Surfaced once at the end of an
// invocation.
type DeferredErrors struct {
	items []string
}

func (d *DeferredErrors) Defer(subject string, err error) {
	d.items = append(d.items, fmt.Sprintf("%s: %v", subject, err))
}

func (d *DeferredErrors) Empty() bool { return len(d.items) == 0 }

func (d *DeferredErrors) Len() int { return len(d.items) }

// Err returns nil when nothing was deferred, otherwise one aggregated error
// listing every recorded row.
func (d *DeferredErrors) Err() error {
	if len(d.items) == 0 {
		return nil
	}
	return fmt.Errorf("%d row(s) failed:\n%s", len(d.items), strings.Join(d.items, "\n"))
}
