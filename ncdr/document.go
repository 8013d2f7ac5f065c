// Package ncdr builds and submits lab export documents to the national
// communicable disease reporting endpoint (SmiNet). The document shape is
// fixed by the partner's XSD, version 4.0.0; only the fields this laboratory
// populates are modelled.
package ncdr

import (
	"encoding/xml"
	"time"
)

const schemaVersion = "4.0.0"

type versionElement struct {
	VersionNumber string `xml:"version-number"`
}

type laboratoryElement struct {
	LabNumber string `xml:"labNumber"`
	LabName   string `xml:"labName"`
}

type sampleInfoElement struct {
	Status             int    `xml:"status"`
	SampleNumber       string `xml:"sampleNumber"`
	SampleDateArrival  string `xml:"sampleDateArrival"`
	SampleDateReferral string `xml:"sampleDateReferral"`
	SampleMaterial     string `xml:"sampleMaterial"`
	OptionalText       string `xml:"sampleFreeTextLab,omitempty"`
	ReferralText       string `xml:"sampleFreeTextReferral,omitempty"`
}

type reportingDoctorElement struct {
	Name string `xml:"name"`
}

type referringDoctorElement struct {
	Name string `xml:"name,omitempty"`
}

type referringClinicElement struct {
	Name            string                 `xml:"referringClinicName"`
	Address         string                 `xml:"address,omitempty"`
	County          string                 `xml:"county"`
	ReferringDoctor referringDoctorElement `xml:"referringDoctor"`
}

type patientElement struct {
	ID   string `xml:"patientId"`
	Sex  string `xml:"patientSex"`
	Name string `xml:"patientName,omitempty"`
	Age  string `xml:"patientAge,omitempty"`
}

type labDiagnosisElement struct {
	Code string `xml:"diagnoseInCode"`
	Text string `xml:"diagnoseInText"`
}

type labResultElement struct {
	DiagnosticMethod string              `xml:"diagnosticMethod"`
	LabDiagnosis     labDiagnosisElement `xml:"labDiagnosis"`
}

type notificationElement struct {
	SampleInfo      sampleInfoElement      `xml:"sampleInfo"`
	ReportingDoctor reportingDoctorElement `xml:"reportingDoctor"`
	ReferringClinic referringClinicElement `xml:"referringClinic"`
	Patient         patientElement         `xml:"patient"`
	LabResult       labResultElement       `xml:"labResult"`
}

type exportDocument struct {
	XMLName         xml.Name            `xml:"smiNetLabExport"`
	Version         versionElement      `xml:"version"`
	DateTimeCreated string              `xml:"dateTimeCreated"`
	Laboratory      laboratoryElement   `xml:"laboratory"`
	Notification    notificationElement `xml:"notification"`
}

// Notification is one reportable positive sample. Every field is validated
// before the document is rendered.
type Notification struct {
	Status             int
	SampleNumber       string
	SampleDateArrival  string
	SampleDateReferral string
	SampleMaterial     string
	SampleFreeTextLab  string
	ReportingDoctor    string
	ClinicName         string
	ClinicAddress      string
	County             string
	ReferringDoctor    string
	PatientID          string
	PatientSex         string
	PatientName        string
	PatientAge         string
	DiagnosticMethod   string
	DiagnosisCode      string
	DiagnosisText      string
}

// Laboratory identifies the submitting lab, from configuration.
type Laboratory struct {
	Number string
	Name   string
}

func (n *Notification) validate() error {
	checks := []error{
		validateStatus(n.Status),
		validateSampleNumber(n.SampleNumber),
		validateDate("sampleDateArrival", n.SampleDateArrival),
		validateDate("sampleDateReferral", n.SampleDateReferral),
		validateSampleMaterial(n.SampleMaterial),
		validateFreeText("sampleFreeTextLab", n.SampleFreeTextLab),
		validateCounty(n.County),
		validatePatientSex(n.PatientSex),
		validateDiagnosticMethod(n.DiagnosticMethod),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if n.ClinicName == "" {
		return &ValidationError{Field: "referringClinicName", Reason: "must not be empty"}
	}
	if n.PatientID == "" {
		return &ValidationError{Field: "patientId", Reason: "must not be empty"}
	}
	return nil
}

// BuildExport renders one notification into the schema-valid XML export
// document. The timestamp is rendered in lab local time.
func BuildExport(laboratory Laboratory, notification Notification, createdAt time.Time) ([]byte, error) {
	if err := notification.validate(); err != nil {
		return nil, err
	}
	if laboratory.Number == "" || laboratory.Name == "" {
		return nil, &ValidationError{Field: "laboratory", Reason: "labNumber and labName must be configured"}
	}

	document := exportDocument{
		Version:         versionElement{VersionNumber: schemaVersion},
		DateTimeCreated: createdAt.Format(dateTimeLayout),
		Laboratory: laboratoryElement{
			LabNumber: laboratory.Number,
			LabName:   laboratory.Name,
		},
		Notification: notificationElement{
			SampleInfo: sampleInfoElement{
				Status:             notification.Status,
				SampleNumber:       notification.SampleNumber,
				SampleDateArrival:  notification.SampleDateArrival,
				SampleDateReferral: notification.SampleDateReferral,
				SampleMaterial:     notification.SampleMaterial,
				OptionalText:       notification.SampleFreeTextLab,
			},
			ReportingDoctor: reportingDoctorElement{Name: notification.ReportingDoctor},
			ReferringClinic: referringClinicElement{
				Name:            notification.ClinicName,
				Address:         notification.ClinicAddress,
				County:          notification.County,
				ReferringDoctor: referringDoctorElement{Name: notification.ReferringDoctor},
			},
			Patient: patientElement{
				ID:   notification.PatientID,
				Sex:  notification.PatientSex,
				Name: notification.PatientName,
				Age:  notification.PatientAge,
			},
			LabResult: labResultElement{
				DiagnosticMethod: notification.DiagnosticMethod,
				LabDiagnosis: labDiagnosisElement{
					Code: notification.DiagnosisCode,
					Text: notification.DiagnosisText,
				},
			},
		},
	}

	rendered, err := xml.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), rendered...), nil
}
