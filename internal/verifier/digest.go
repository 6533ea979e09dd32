package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docverify/internal/config"
	"git.home.luguber.info/inful/docverify/internal/discovery"
	"git.home.luguber.info/inful/docverify/internal/frontmatter"
)

// InputDigest hashes the verification inputs. Markdown documents contribute
// their front matter fingerprint, stylesheets and assets their content hash.
// Paths are recorded relative to root so moving the checkout does not change
// the digest.
func InputDigest(root string, markdown, css, assets discovery.FileSet) (string, error) {
	h := sha256.New()
	for _, p := range markdown.Paths {
		doc, err := frontmatter.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("digest %s: %w", p, err)
		}
		fmt.Fprintf(h, "md\x00%s\x00%s\n", rel(root, p), doc.Fingerprint())
	}
	for _, set := range []discovery.FileSet{css, assets} {
		for _, p := range set.Paths {
			sum, err := fileHash(p)
			if err != nil {
				return "", fmt.Errorf("digest %s: %w", p, err)
			}
			fmt.Fprintf(h, "%s\x00%s\x00%s\n", set.Name, rel(root, p), sum)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestInputs discovers the input sets of cfg and returns their digest
// without running a build.
func DigestInputs(ctx context.Context, cfg *config.Config) (string, error) {
	patterns := discovery.SitePatterns(cfg)
	sets, err := discovery.Discover(ctx, patterns[0], patterns[2], patterns[4])
	if err != nil {
		return "", err
	}
	return InputDigest(cfg.Root, sets[0], sets[2], sets[1])
}

func fileHash(p string) (string, error) {
	// #nosec G304 -- path produced by discovery
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func rel(root, p string) string {
	if r, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(r)
	}
	return p
}
