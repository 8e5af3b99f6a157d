// Package vusc is a client for the remote vulnerability-scanning service: the
// jobs API (scan jobs and their findings, looked up by application
// fingerprint) and the knowledgebase API (which libraries own a class).
package vusc

import "time"

// LocationCode is the location type for findings that point into bytecode.
const LocationCode = "CodeLocation"

// MetadataAPK is the metadata type attached to jobs that scanned an APK.
const MetadataAPK = "APKMetadata"

// Job is one scan of one application binary.
type Job struct {
	ID         int64        `json:"id"`
	IsFailed   bool         `json:"isFailed"`
	IsFinished bool         `json:"isFinished"`
	Hash       string       `json:"hash,omitempty"`
	Status     *JobStatus   `json:"status,omitempty"`
	Metadata   *JobMetadata `json:"metadata,omitempty"`
	Results    *JobResults  `json:"jobResults,omitempty"`
}

// Usable reports whether the job finished without failing.
func (j *Job) Usable() bool {
	return j != nil && j.IsFinished && !j.IsFailed
}

// VulnerabilityFindings returns the job's vulnerability findings, or nil.
func (j *Job) VulnerabilityFindings() []Finding {
	if j == nil || j.Results == nil {
		return nil
	}
	return j.Results.VulnerabilityFindings
}

// InformationFindings returns the job's information findings, or nil.
func (j *Job) InformationFindings() []Finding {
	if j == nil || j.Results == nil {
		return nil
	}
	return j.Results.InformationFindings
}

// JobStatus carries the scheduling timestamps of a job.
type JobStatus struct {
	SubmitDate *time.Time `json:"submitDate,omitempty"`
	FinishDate *time.Time `json:"finishDate,omitempty"`
}

// JobMetadata describes the scanned binary. Only APK metadata carries
// package and version names.
type JobMetadata struct {
	Type        string `json:"type"`
	PackageName string `json:"packageName,omitempty"`
	VersionName string `json:"versionName,omitempty"`
}

// JobResults holds the findings produced by a job.
type JobResults struct {
	VulnerabilityFindings []Finding `json:"vulnerabilityFindings,omitempty"`
	InformationFindings   []Finding `json:"informationFindings,omitempty"`
}

// Finding is one reported vulnerability or informational result.
type Finding struct {
	Category       string      `json:"category"`
	Type           string      `json:"type"`
	Location       *Location   `json:"location,omitempty"`
	AdditionalData []Attribute `json:"additionalData,omitempty"`
}

// ClassName returns the class the finding points into, if the finding has a
// code location.
func (f *Finding) ClassName() (string, bool) {
	if f.Location == nil || f.Location.Type != LocationCode || f.Location.ClassName == "" {
		return "", false
	}
	return f.Location.ClassName, true
}

// Location is where a finding was reported.
type Location struct {
	Type       string `json:"type"`
	ClassName  string `json:"className,omitempty"`
	MethodName string `json:"methodName,omitempty"`
}

// Attribute is a named value attached to a finding.
type Attribute struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// Library is a third-party library known to the knowledgebase.
type Library struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}
