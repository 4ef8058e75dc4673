package helpers

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"dropnest_backend/internal/models"

	"github.com/stretchr/testify/assert"
)

var accountSeq atomic.Int64

// Owner is a provisioned test account with its session token.
type Owner struct {
	Token     string
	Account   models.Account
	Workspace models.Workspace
	Link      models.CollectionLink
	Slug      string
}

// UploadBase is the public ingestion prefix of the owner's default link.
func (o *Owner) UploadBase() string {
	return fmt.Sprintf("/u/%s/%s", o.Slug, o.Link.Topic)
}

// ProvisionOwner signs up a fresh account through the API and logs it in.
// Identifiers are unique per call so tests can share one database.
func ProvisionOwner(t *testing.T, ts *TestServer) *Owner {
	t.Helper()

	n := accountSeq.Add(1)
	slug := fmt.Sprintf("acct%dn%d", time.Now().UnixNano(), n)
	email := fmt.Sprintf("owner_%s@test.local", slug)

	res, body := ts.SendRequest(t, http.MethodPost, "/api/v1/accounts", "", map[string]interface{}{
		"email":    email,
		"password": "integration-pass",
		"slug":     slug,
		"name":     "Integration Owner",
		"tier":     "free",
	})
	assert.Equal(t, http.StatusCreated, res.StatusCode, "signup failed: "+body)

	var created struct {
		Account   models.Account        `json:"account"`
		Workspace models.Workspace      `json:"workspace"`
		Link      models.CollectionLink `json:"link"`
	}
	Decode(t, body, &created)

	res, body = ts.SendRequest(t, http.MethodPost, "/api/v1/accounts/login", "", map[string]interface{}{
		"email":    email,
		"password": "integration-pass",
	})
	assert.Equal(t, http.StatusOK, res.StatusCode, "login failed: "+body)

	var session struct {
		Token string `json:"token"`
	}
	Decode(t, body, &session)
	assert.NotEmpty(t, session.Token)

	return &Owner{
		Token:     session.Token,
		Account:   created.Account,
		Workspace: created.Workspace,
		Link:      created.Link,
		Slug:      slug,
	}
}

// OpenBatch opens an upload batch on the owner's default link.
func OpenBatch(t *testing.T, ts *TestServer, owner *Owner, uploaderEmail string) models.Batch {
	t.Helper()

	res, body := ts.SendRequest(t, http.MethodPost, owner.UploadBase()+"/batches", "", map[string]interface{}{
		"uploader_name":  "Integration Uploader",
		"uploader_email": uploaderEmail,
	})
	assert.Equal(t, http.StatusCreated, res.StatusCode, "open batch failed: "+body)

	var batch models.Batch
	Decode(t, body, &batch)
	return batch
}
