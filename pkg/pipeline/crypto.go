package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/eunmann/vuln-stats/pkg/counting"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// CryptoUsage records how often each job uses the tracked ciphers and
// digests, as reported by the scanner's crypto statistics findings.
type CryptoUsage struct {
	rec recorder
}

func NewCryptoUsage(sink store.Sink) *CryptoUsage {
	return &CryptoUsage{rec: recorder{sink: sink}}
}

func (p *CryptoUsage) Name() string { return NameCryptoUsage }

func (p *CryptoUsage) ProcessJob(ctx context.Context, _ store.App, job *vusc.Job) error {
	counts := counting.NewMap[string]()
	for _, f := range job.InformationFindings() {
		switch KindOf(f.Type) {
		case KindCipherStatistics, KindDigestStatistics:
		default:
			continue
		}
		for _, attr := range f.AdditionalData {
			n, err := strconv.Atoi(attr.Data)
			if err != nil {
				return fmt.Errorf("parse %s count %q: %w", attr.Name, attr.Data, err)
			}
			counts.Add(attr.Name, n)
		}
	}
	if counts.IsEmpty() {
		return nil
	}
	p.rec.write(ctx, cryptoStatistics(job.ID, counts))
	return nil
}

// cryptoStatistics folds the per-algorithm counts into the tracked columns.
// Spelling variants share a column; untracked algorithms are dropped.
func cryptoStatistics(jobID int64, c *counting.Map[string]) store.CryptoStatistics {
	return store.CryptoStatistics{
		JobID:       jobID,
		NumMD5:      c.Get("MD5") + c.Get("md5"),
		NumRC4:      c.Get("RC4"),
		NumSHA1:     c.Get("sha1") + c.Get("SHA1") + c.Get("SHA-1"),
		NumSHA256:   c.Get("SHA-256"),
		NumSHA512:   c.Get("SHA-512"),
		NumAES:      c.Get("AES"),
		NumDSA:      c.Get("DSA"),
		NumRSA:      c.Get("RSA"),
		NumBlowfish: c.Get("Blowfish"),
	}
}

func (p *CryptoUsage) Finish(context.Context) error { return nil }

func (p *CryptoUsage) Stats() Stats { return p.rec.stats(nil) }
