package covidpipe

import (
	"fmt"
)

// UDF names used on substances, submitted samples and steps. These are the
// persistence surface of the whole workflow, renaming any of them requires a
// migration in the LIMS.
const (
	UDFControl                 = "Control"
	UDFKNMDataAddedAt          = "knm_data_added_at"
	UDFKNMOrgURI               = "knm_org_uri"
	UDFKNMServiceRequestID     = "knm_service_request_id"
	UDFSource                  = "source"
	UDFStatus                  = "status"
	UDFFamCtLatest             = "FAM-CT latest"
	UDFVicCtLatest             = "VIC-CT latest"
	UDFRtPCRResultLatest       = "rtpcr_covid19_result_latest"
	UDFReviewerResult          = "reviewer_result"
	UDFKNMResultUploaded       = "knm_result_uploaded"
	UDFKNMResultUploadedDate   = "knm_result_uploaded_date"
	UDFKNMResultUploadedSource = "knm_result_uploaded_source"
	UDFSmiNetStatus            = "sminet_status"
	UDFSmiNetLastError         = "sminet_last_error"
	UDFSmiNetUploadedDate      = "sminet_uploaded_date"
	UDFSmiNetUploadedSource    = "sminet_uploaded_source"

	StepUDFInstrumentUsed    = "Instrument Used"
	StepUDFRtPCRPassed       = "rtPCR Passed"
	StepUDFCreatedContainers = "created_containers"

	// SourceKNM marks substances that entered through the partner intake.
	SourceKNM = "KNM"
)

// Organization is one of the named partner organizations. The URI is the
// opaque identifier the partner keys service requests on.
type Organization struct {
	Name string
	URI  string
}

var (
	// OrgTesting bypasses all external calls and produces deterministic fake
	// identifiers.
	OrgTesting       = Organization{Name: "testing", URI: "http://testing.snpseq.se/identifier"}
	OrgKarlssonNovak = Organization{Name: "karlsson-novak", URI: "https://www.karlsson-novak.se/identifier"}
	OrgKUL           = Organization{Name: "kul", URI: "https://kul.example.se/identifier"}
	OrgLabportalen   = Organization{Name: "labportalen", URI: "https://www.labportalen.se/refcode"}
	// OrgAnonymous owns the service requests created for unregistered
	// barcodes.
	OrgAnonymous = Organization{Name: "anonymous", URI: "https://www.karlsson-novak.se/anonymous"}
)

var organizationsByName = map[string]Organization{
	OrgTesting.Name:       OrgTesting,
	OrgKarlssonNovak.Name: OrgKarlssonNovak,
	OrgKUL.Name:           OrgKUL,
	OrgLabportalen.Name:   OrgLabportalen,
	OrgAnonymous.Name:     OrgAnonymous,
}

func OrganizationByName(name string) (Organization, error) {
	organization, ok := organizationsByName[name]
	if !ok {
		return Organization{}, fmt.Errorf("%w: %q", ErrUnknownOrganization, name)
	}
	return organization, nil
}

// Control identifies the plate controls used in the rtPCR setup. The
// abbreviation is used when naming control substances.
type Control string

const (
	ControlMGINeg    Control = "mgi-negative"
	ControlMGIPos    Control = "mgi-positive"
	ControlNegWater  Control = "negative-water"
	ControlPosPlasmid Control = "positive-plasmid"
	ControlPosVirus  Control = "positive-virus"
	ControlNegVircon Control = "negative-vircon"
	ControlNegPCR    Control = "negative-pcr"
	ControlRtPCRPos  Control = "rtpcr-positive"
	ControlRtPCRNeg  Control = "rtpcr-negative"
)

var controlAbbreviations = map[Control]string{
	ControlMGINeg:     "MGIneg",
	ControlMGIPos:     "MGIpos",
	ControlNegWater:   "H2Oneg",
	ControlPosPlasmid: "PLASMIDpos",
	ControlPosVirus:   "VIRUSpos",
	ControlNegVircon:  "VIRCONneg",
	ControlNegPCR:     "PCRneg",
	ControlRtPCRPos:   "RTPCRpos",
	ControlRtPCRNeg:   "RTPCRneg",
}

func (c Control) Abbreviation() string {
	abbreviation, ok := controlAbbreviations[c]
	if !ok {
		return string(c)
	}
	return abbreviation
}

// Diagnosis is the internal per analyte call.
type Diagnosis string

const (
	DiagnosisPositive          Diagnosis = "positive"
	DiagnosisNegative          Diagnosis = "negative"
	DiagnosisFailed            Diagnosis = "failed"
	DiagnosisFailedByReview    Diagnosis = "failed-by-review"
	DiagnosisFailedEntirePlate Diagnosis = "failed-entire-plate"
)

// ExternalResult collapses the internal failure states to the three values
// the partner accepts.
func (d Diagnosis) ExternalResult() Diagnosis {
	switch d {
	case DiagnosisPositive, DiagnosisNegative:
		return d
	default:
		return DiagnosisFailed
	}
}

// SmiNet submission state per substance. Success and ignore are terminal.
const (
	SmiNetStatusNone    = ""
	SmiNetStatusRetry   = "retry"
	SmiNetStatusError   = "error"
	SmiNetStatusSuccess = "success"
	SmiNetStatusIgnore  = "ignore"
)

// SmiNetStatusAllowsSubmission reports whether a substance in the given state
// may be (re)submitted to SmiNet.
func SmiNetStatusAllowsSubmission(status string) bool {
	switch status {
	case SmiNetStatusNone, SmiNetStatusRetry, SmiNetStatusError:
		return true
	default:
		return false
	}
}
