package store

// Table names. They double as Parquet export file names.
const (
	TableApps                        = "apps_to_analyze"
	TableVulnerabilitiesPerCategory  = "VulnerabilitiesPerCategory"
	TableVulnerabilityCounts         = "VulnerabilityCounts"
	TablePerCategoryFindingCount     = "PerCategoryFindingCount"
	TableCryptoStatistics            = "CryptoStatistics"
	TableOutdatedAlgorithmStatistics = "OutdatedAlgorithmStatistics"
	TableLibraryFindingCount         = "LibraryFindingCount"
	TableLibraryCategoryFindingCount = "LibraryCategoryFindingCount"
	TableLibraryCryptoCount          = "LibraryCryptoCount"
)

// Record is one row destined for a statistics table.
// Columns and Values must line up one to one.
type Record interface {
	Table() string
	Columns() []string
	Values() []any
}

// App is one tracked application binary. JobID, PackageName and VersionName
// are unknown until the job metadata pipeline has run; zero values are
// stored as NULL.
type App struct {
	ID            int64  `parquet:"id"`
	JobID         int64  `parquet:"job_id"`
	Year          int    `parquet:"year"`
	APKFileName   string `parquet:"apk_file_name"`
	SHA256        string `parquet:"sha256"`
	PackageName   string `parquet:"package_name"`
	VersionName   string `parquet:"version_name"`
	NumClasses    int64  `parquet:"num_classes"`
	NumMethods    int64  `parquet:"num_methods"`
	NumUnits      int64  `parquet:"num_units"`
	NumLibClasses int64  `parquet:"num_lib_classes"`
	NumAppClasses int64  `parquet:"num_app_classes"`
}

// HasMetadata reports whether package and version are known.
func (a App) HasMetadata() bool {
	return a.PackageName != "" && a.VersionName != ""
}

func (App) Table() string { return TableApps }

func (App) Columns() []string {
	return []string{
		"job_id", "year", "apk_file_name", "sha256", "package_name", "version_name",
		"num_classes", "num_methods", "num_units", "num_lib_classes", "num_app_classes",
	}
}

func (a App) Values() []any {
	return []any{
		nullInt(a.JobID), a.Year, a.APKFileName, a.SHA256, nullString(a.PackageName), nullString(a.VersionName),
		a.NumClasses, a.NumMethods, a.NumUnits, a.NumLibClasses, a.NumAppClasses,
	}
}

// VulnerabilitiesPerCategory counts one job's vulnerabilities in one category
// and how many of them sit in library code.
type VulnerabilitiesPerCategory struct {
	JobID              int64   `parquet:"job_id"`
	Category           string  `parquet:"category"`
	NumVulnerabilities int     `parquet:"num_vulnerabilities"`
	NumLibVulns        int     `parquet:"num_lib_vulns"`
	LibraryPercentage  float64 `parquet:"library_percentage"`
}

func (VulnerabilitiesPerCategory) Table() string { return TableVulnerabilitiesPerCategory }

func (VulnerabilitiesPerCategory) Columns() []string {
	return []string{"job_id", "category", "num_vulnerabilities", "num_lib_vulns", "library_percentage"}
}

func (r VulnerabilitiesPerCategory) Values() []any {
	return []any{r.JobID, r.Category, r.NumVulnerabilities, r.NumLibVulns, r.LibraryPercentage}
}

// VulnerabilityCounts is VulnerabilitiesPerCategory keyed by vulnerability type.
type VulnerabilityCounts struct {
	JobID              int64   `parquet:"job_id"`
	VulnType           string  `parquet:"vuln_type"`
	NumVulnerabilities int     `parquet:"num_vulnerabilities"`
	NumLibVulns        int     `parquet:"num_lib_vulns"`
	LibraryPercentage  float64 `parquet:"library_percentage"`
}

func (VulnerabilityCounts) Table() string { return TableVulnerabilityCounts }

func (VulnerabilityCounts) Columns() []string {
	return []string{"job_id", "vuln_type", "num_vulnerabilities", "num_lib_vulns", "library_percentage"}
}

func (r VulnerabilityCounts) Values() []any {
	return []any{r.JobID, r.VulnType, r.NumVulnerabilities, r.NumLibVulns, r.LibraryPercentage}
}

// PerCategoryFindingCount is one (category, type) cell of a job's findings.
type PerCategoryFindingCount struct {
	JobID         int64  `parquet:"job_id"`
	Category      string `parquet:"category"`
	Vulnerability string `parquet:"vulnerability"`
	Count         int    `parquet:"count"`
}

func (PerCategoryFindingCount) Table() string { return TablePerCategoryFindingCount }

func (PerCategoryFindingCount) Columns() []string {
	return []string{"job_id", "category", "vulnerability", "count"}
}

func (r PerCategoryFindingCount) Values() []any {
	return []any{r.JobID, r.Category, r.Vulnerability, r.Count}
}

// CryptoStatistics holds one job's usage counts for the tracked ciphers and
// digests.
type CryptoStatistics struct {
	JobID        int64 `parquet:"job_id"`
	TotalCiphers int   `parquet:"total_ciphers"`
	NumMD5       int   `parquet:"num_md5"`
	NumRC4       int   `parquet:"num_rc4"`
	NumSHA1      int   `parquet:"num_sha1"`
	NumSHA256    int   `parquet:"num_sha256"`
	NumSHA512    int   `parquet:"num_sha512"`
	NumAES       int   `parquet:"num_aes"`
	NumDSA       int   `parquet:"num_dsa"`
	NumRSA       int   `parquet:"num_rsa"`
	NumBlowfish  int   `parquet:"num_blowfish"`
}

func (CryptoStatistics) Table() string { return TableCryptoStatistics }

func (CryptoStatistics) Columns() []string {
	return []string{
		"job_id", "total_ciphers", "num_md5", "num_rc4", "num_sha1", "num_sha256",
		"num_sha512", "num_aes", "num_dsa", "num_rsa", "num_blowfish",
	}
}

func (r CryptoStatistics) Values() []any {
	return []any{
		r.JobID, r.TotalCiphers, r.NumMD5, r.NumRC4, r.NumSHA1, r.NumSHA256,
		r.NumSHA512, r.NumAES, r.NumDSA, r.NumRSA, r.NumBlowfish,
	}
}

// OutdatedAlgorithmStatistics counts one job's uses of an insecure algorithm.
// LibraryRatio is the share of uses found in library code, as a fraction.
type OutdatedAlgorithmStatistics struct {
	JobID        int64   `parquet:"job_id"`
	Algorithm    string  `parquet:"algorithm"`
	Count        int     `parquet:"count"`
	LibraryRatio float64 `parquet:"library_ratio"`
}

func (OutdatedAlgorithmStatistics) Table() string { return TableOutdatedAlgorithmStatistics }

func (OutdatedAlgorithmStatistics) Columns() []string {
	return []string{"job_id", "algorithm", "count", "library_ratio"}
}

func (r OutdatedAlgorithmStatistics) Values() []any {
	return []any{r.JobID, r.Algorithm, r.Count, r.LibraryRatio}
}

// LibraryFindingCount is the run-wide number of findings of one type in one library.
type LibraryFindingCount struct {
	LibraryName string `parquet:"library_name"`
	VulnType    string `parquet:"vuln_type"`
	NumFindings int    `parquet:"num_findings"`
}

func (LibraryFindingCount) Table() string { return TableLibraryFindingCount }

func (LibraryFindingCount) Columns() []string {
	return []string{"library_name", "vuln_type", "num_findings"}
}

func (r LibraryFindingCount) Values() []any {
	return []any{r.LibraryName, r.VulnType, r.NumFindings}
}

// LibraryCategoryFindingCount is the run-wide number of findings of one
// category in one library.
type LibraryCategoryFindingCount struct {
	LibraryName string `parquet:"library_name"`
	Category    string `parquet:"category"`
	NumFindings int    `parquet:"num_findings"`
}

func (LibraryCategoryFindingCount) Table() string { return TableLibraryCategoryFindingCount }

func (LibraryCategoryFindingCount) Columns() []string {
	return []string{"library_name", "category", "num_findings"}
}

func (r LibraryCategoryFindingCount) Values() []any {
	return []any{r.LibraryName, r.Category, r.NumFindings}
}

// LibraryCryptoCount is the run-wide number of insecure algorithm uses of one
// algorithm in one library.
type LibraryCryptoCount struct {
	LibraryName string `parquet:"library_name"`
	Algorithm   string `parquet:"algorithm"`
	NumFindings int    `parquet:"num_findings"`
}

func (LibraryCryptoCount) Table() string { return TableLibraryCryptoCount }

func (LibraryCryptoCount) Columns() []string {
	return []string{"library_name", "algorithm", "num_findings"}
}

func (r LibraryCryptoCount) Values() []any {
	return []any{r.LibraryName, r.Algorithm, r.NumFindings}
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
