package pkpass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/information-sharing-networks/passbook/internal/crypto"
	"github.com/klauspost/compress/zip"
)

// ContentType is the MIME type of a pass archive
const ContentType = "application/vnd.apple.pkpass"

// Signer produces the detached signature over manifest.json
type Signer interface {
	Sign(ctx context.Context, manifest []byte) ([]byte, error)
}

// Manifest maps each file in the archive (other than manifest.json and signature) to its SHA-1 hex digest
type Manifest map[string]string

// BuildManifest returns pass.json and the manifest for the content.
// pass.json is written in canonical JSON so unchanged content always produces the same manifest.
func BuildManifest(c *Content) (passJSON []byte, manifest Manifest, err error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal pass.json: %w", err)
	}
	passJSON, err = crypto.CanonicalizeJSON(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to canonicalize pass.json: %w", err)
	}

	manifest = Manifest{PassFile: crypto.SHA1Hex(passJSON)}
	for name, data := range c.Files {
		if problem := checkFileName(name); problem != "" {
			return nil, nil, NewContentError(problem)
		}
		manifest[name] = crypto.SHA1Hex(data)
	}
	return passJSON, manifest, nil
}

// WriteArchive writes the signed pass archive for c to w.
//
// The archive holds pass.json, the content files, manifest.json and the detached signature over manifest.json.
// Content is not validated here; call Validate first.
func WriteArchive(ctx context.Context, w io.Writer, c *Content, signer Signer) error {
	passJSON, manifest, err := BuildManifest(c)
	if err != nil {
		return err
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest.json: %w", err)
	}

	signature, err := signer.Sign(ctx, manifestJSON)
	if err != nil {
		return fmt.Errorf("failed to sign manifest: %w", err)
	}

	zw := zip.NewWriter(w)

	files := map[string][]byte{
		PassFile:      passJSON,
		ManifestFile:  manifestJSON,
		SignatureFile: signature,
	}
	maps.Copy(files, c.Files)

	for _, name := range slices.Sorted(maps.Keys(files)) {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// ReadArchive returns the files in a pass archive
func ReadArchive(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		files[f.Name] = content
	}
	return files, nil
}

// VerifyArchive checks the manifest checksums and the signature of an archive read with ReadArchive.
// It returns the decoded pass.json.
func VerifyArchive(files map[string][]byte) (*Content, error) {
	manifestJSON, ok := files[ManifestFile]
	if !ok {
		return nil, fmt.Errorf("archive has no %s", ManifestFile)
	}
	signature, ok := files[SignatureFile]
	if !ok {
		return nil, fmt.Errorf("archive has no %s", SignatureFile)
	}

	var manifest Manifest
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}

	for name, data := range files {
		if name == ManifestFile || name == SignatureFile {
			continue
		}
		want, ok := manifest[name]
		if !ok {
			return nil, fmt.Errorf("%s is not listed in the manifest", name)
		}
		if !crypto.VerifySHA1Checksum(data, want) {
			return nil, fmt.Errorf("%s does not match its manifest checksum", name)
		}
	}
	for name := range manifest {
		if _, ok := files[name]; !ok {
			return nil, fmt.Errorf("manifest lists %s but the archive does not contain it", name)
		}
	}

	if _, err := crypto.VerifyDetached(signature, manifestJSON); err != nil {
		return nil, err
	}

	var c Content
	if err := json.Unmarshal(files[PassFile], &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", PassFile, err)
	}
	return &c, nil
}
