package services

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DocServerClient checks the document-hosting service that exposes the
// source documents the knowledge base was transcribed from.
type DocServerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDocServerClient creates a client with a short probe timeout: citation
// building must never hold up a response waiting on a dead host.
func NewDocServerClient(baseURL string, timeout time.Duration) *DocServerClient {
	return &DocServerClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// IsHealthy probes the document server root.
func (d *DocServerClient) IsHealthy() bool {
	resp, err := d.httpClient.Get(d.baseURL + "/")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// DocumentURL returns the public link for a source document name.
func (d *DocServerClient) DocumentURL(filename string) string {
	return d.baseURL + "/pdf/" + url.PathEscape(documentName(filename))
}

// HasDocument checks that the concrete file exists on the server.
func (d *DocServerClient) HasDocument(filename string) bool {
	resp, err := d.httpClient.Head(d.baseURL + "/pdf/" + url.PathEscape(documentName(filename)))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// documentName maps a knowledge-base transcript name to the hosted source
// document name (transcripts are .txt renditions of the original PDFs).
func documentName(filename string) string {
	if strings.HasSuffix(filename, ".txt") {
		return strings.TrimSuffix(filename, ".txt") + ".pdf"
	}
	return filename
}

// CitationBuilder produces the optional trailing answer part that links the
// source documents used for an answer.
type CitationBuilder struct {
	docs *DocServerClient
}

// NewCitationBuilder creates a citation builder over the given doc server.
func NewCitationBuilder(docs *DocServerClient) *CitationBuilder {
	return &CitationBuilder{docs: docs}
}

// Build returns the citation part for the given source files, or "" when no
// citation should be shown: an unreachable document server or missing files
// are non-fatal and simply suppress the citation.
func (c *CitationBuilder) Build(filesUsed []string) string {
	if len(filesUsed) == 0 || !c.docs.IsHealthy() {
		return ""
	}

	var links []string
	for _, f := range filesUsed {
		if c.docs.HasDocument(f) {
			links = append(links, c.docs.DocumentURL(f))
		}
	}
	if len(links) == 0 {
		return ""
	}

	if len(links) == 1 {
		return fmt.Sprintf("Vous pouvez consulter le document suivant pour plus de détails : %s. "+
			"Si vous avez besoin d'aide supplémentaire, contactez le support.", links[0])
	}
	return fmt.Sprintf("Vous pouvez consulter les documents suivants pour plus de détails : %s. "+
		"Si vous avez besoin d'aide supplémentaire, contactez le support.", strings.Join(links, ", "))
}
