// Package fingerprint digests the listing page state so the pagination loop can
// tell whether a navigation changed the rendered results.
package fingerprint

import (
	"context"
	"crypto/md5"
	"encoding/hex"

	"supplier_leads_scraper/internal/browser"
	"supplier_leads_scraper/internal/logger"
)

// Store computes fingerprints of the current page state. It keeps no history;
// callers compare the values they hold.
type Store struct {
	eval browser.Evaluator
	log  logger.Logger
}

// New returns a Store reading through eval.
func New(eval browser.Evaluator, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{eval: eval, log: log}
}

// Fingerprint returns the MD5 hex digest of the serialized pageProps. It
// reports false when the state is absent or cannot be read.
func (s *Store) Fingerprint(ctx context.Context) (string, bool) {
	var raw *string
	if err := s.eval.Evaluate(ctx, browser.PagePropsJSONScript, &raw); err != nil {
		s.log.Debug("Fingerprint unavailable", logger.Error(err))
		return "", false
	}
	if raw == nil {
		return "", false
	}
	return Sum(*raw), true
}

// Sum is the fingerprint of a serialized state.
func Sum(serialized string) string {
	sum := md5.Sum([]byte(serialized))
	return hex.EncodeToString(sum[:])
}
