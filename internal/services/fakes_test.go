package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/config"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes for the repository interfaces. All fakes of one fixture
// share a single mutex, and the lookup methods used on the ingestion path
// return copies, so service-level concurrency tests exercise the same
// snapshot-then-conditional-consume shape as the real store.

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Env = "development"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = 60
	cfg.Quota.Tiers = map[string]config.TierLimits{
		"free": {UsageLimit: 1 << 30, MaxFileSize: 100 << 20},
		"pro":  {UsageLimit: 100 << 30, MaxFileSize: 5 << 30},
	}
	cfg.Quota.LinkDefaults = config.LinkDefaults{
		UsageLimit:  500 << 20,
		MaxFiles:    100,
		MaxFileSize: 100 << 20,
	}
	config.AppConfig = cfg
	return cfg
}

func TestMain(m *testing.M) {
	testConfig()
	os.Exit(m.Run())
}

// --- accounts ---

type fakeAccountRepo struct {
	mu         *sync.Mutex
	accounts   map[string]*models.Account
	workspaces map[string]*models.Workspace // by account id
}

func newFakeAccountRepo(mu *sync.Mutex) *fakeAccountRepo {
	return &fakeAccountRepo{
		mu:         mu,
		accounts:   map[string]*models.Account{},
		workspaces: map[string]*models.Workspace{},
	}
}

func (r *fakeAccountRepo) add(account *models.Account) *models.Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	r.accounts[account.ID] = account
	ws := &models.Workspace{AccountID: account.ID, Name: account.Slug}
	ws.ID = uuid.NewString()
	r.workspaces[account.ID] = ws
	return ws
}

func (r *fakeAccountRepo) Create(account *models.Account) error {
	r.add(account)
	return nil
}

func (r *fakeAccountRepo) FindByID(id string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		snapshot := *a
		return &snapshot, nil
	}
	return nil, repositories.ErrAccountNotFound
}

func (r *fakeAccountRepo) FindByEmail(email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			snapshot := *a
			return &snapshot, nil
		}
	}
	return nil, repositories.ErrAccountNotFound
}

func (r *fakeAccountRepo) FindBySlug(slug string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Slug == slug {
			snapshot := *a
			return &snapshot, nil
		}
	}
	return nil, repositories.ErrAccountNotFound
}

func (r *fakeAccountRepo) FindWorkspaceByAccount(accountID string) (*models.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.workspaces[accountID]; ok {
		return ws, nil
	}
	return nil, repositories.ErrWorkspaceNotFound
}

func (r *fakeAccountRepo) UsageSnapshot(accountID string) (int64, int64, error) {
	a, err := r.FindByID(accountID)
	if err != nil {
		return 0, 0, err
	}
	return a.UsageUsed, a.UsageLimit, nil
}

// --- folders ---

type fakeFolderRepo struct {
	mu      *sync.Mutex
	folders map[string]*models.Folder
	moveErr error
}

func newFakeFolderRepo(mu *sync.Mutex) *fakeFolderRepo {
	return &fakeFolderRepo{mu: mu, folders: map[string]*models.Folder{}}
}

func (r *fakeFolderRepo) Create(folder *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folders {
		if f.WorkspaceID == folder.WorkspaceID && f.Path == folder.Path {
			return repositories.ErrFolderExists
		}
	}
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	r.folders[folder.ID] = folder
	return nil
}

func (r *fakeFolderRepo) FindByID(id string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.folders[id]; ok {
		snapshot := *f
		return &snapshot, nil
	}
	return nil, repositories.ErrFolderNotFound
}

func (r *fakeFolderRepo) FindByPath(workspaceID, path string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folders {
		if f.WorkspaceID == workspaceID && f.Path == path {
			snapshot := *f
			return &snapshot, nil
		}
	}
	return nil, repositories.ErrFolderNotFound
}

func (r *fakeFolderRepo) ListChildren(workspaceID string, parentID *string) ([]models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Folder
	for _, f := range r.folders {
		if f.WorkspaceID != workspaceID {
			continue
		}
		if parentID == nil && f.ParentID == nil {
			out = append(out, *f)
		} else if parentID != nil && f.ParentID != nil && *f.ParentID == *parentID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) Move(folderID, newParentID string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.moveErr != nil {
		return nil, r.moveErr
	}
	folder, ok := r.folders[folderID]
	if !ok {
		return nil, repositories.ErrFolderNotFound
	}
	parent, ok := r.folders[newParentID]
	if !ok {
		return nil, repositories.ErrFolderNotFound
	}
	if models.IsSelfOrDescendantPath(parent.Path, folder.Path) {
		return nil, repositories.ErrFolderCycle
	}

	oldPath := folder.Path
	delta := parent.Depth + 1 - folder.Depth
	folder.ParentID = &parent.ID
	folder.Path = models.ChildPath(parent.Path, folder.Name)
	for _, f := range r.folders {
		if newPath, match := models.RewritePrefix(f.Path, oldPath, folder.Path); match {
			f.Path = newPath
			f.Depth += delta
		}
	}
	snapshot := *folder
	return &snapshot, nil
}

func (r *fakeFolderRepo) Rename(folderID, newName string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	folder, ok := r.folders[folderID]
	if !ok {
		return nil, repositories.ErrFolderNotFound
	}
	oldPath := folder.Path
	folder.Name = newName
	parentPath := ""
	if folder.ParentID != nil {
		if p, ok := r.folders[*folder.ParentID]; ok {
			parentPath = p.Path
		}
	}
	folder.Path = models.ChildPath(parentPath, newName)
	for _, f := range r.folders {
		if newPath, match := models.RewritePrefix(f.Path, oldPath, folder.Path); match && f.ID != folder.ID {
			f.Path = newPath
		}
	}
	snapshot := *folder
	return &snapshot, nil
}

func (r *fakeFolderRepo) Delete(folderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	folder, ok := r.folders[folderID]
	if !ok {
		return repositories.ErrFolderNotFound
	}
	for id, f := range r.folders {
		if models.IsSelfOrDescendantPath(f.Path, folder.Path) {
			delete(r.folders, id)
		}
	}
	return nil
}

func (r *fakeFolderRepo) AnyLinkRoot(workspaceID string, paths []string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := map[string]bool{}
	for _, p := range paths {
		set[p] = true
	}
	for _, f := range r.folders {
		if f.WorkspaceID == workspaceID && f.IsLinkRoot && set[f.Path] {
			return true, nil
		}
	}
	return false, nil
}

// --- links ---

type fakeLinkRepo struct {
	mu    *sync.Mutex
	links map[string]*models.CollectionLink
}

func newFakeLinkRepo(mu *sync.Mutex) *fakeLinkRepo {
	return &fakeLinkRepo{mu: mu, links: map[string]*models.CollectionLink{}}
}

func (r *fakeLinkRepo) Create(link *models.CollectionLink, folder *models.Folder, ownerEmail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.OwnerSlug == link.OwnerSlug && l.Topic == link.Topic {
			return repositories.ErrLinkTopicTaken
		}
	}
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	folder.IsLinkRoot = true
	link.ID = uuid.NewString()
	link.FolderID = folder.ID
	link.WorkspaceID = folder.WorkspaceID
	r.links[link.ID] = link
	return nil
}

func (r *fakeLinkRepo) FindByID(id string) (*models.CollectionLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.links[id]; ok {
		snapshot := *l
		return &snapshot, nil
	}
	return nil, repositories.ErrLinkNotFound
}

func (r *fakeLinkRepo) FindBySlugAndTopic(slug, topic string) (*models.CollectionLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.OwnerSlug == slug && l.Topic == topic {
			snapshot := *l
			return &snapshot, nil
		}
	}
	return nil, repositories.ErrLinkNotFound
}

func (r *fakeLinkRepo) ListByWorkspace(workspaceID string) ([]models.CollectionLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CollectionLink
	for _, l := range r.links {
		if l.WorkspaceID == workspaceID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) UpdateSettings(linkID string, updates map[string]interface{}) (*models.CollectionLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[linkID]
	if !ok {
		return nil, repositories.ErrLinkNotFound
	}
	if v, ok := updates["title"].(string); ok {
		link.Title = v
	}
	if v, ok := updates["is_active"].(bool); ok {
		link.IsActive = v
	}
	snapshot := *link
	return &snapshot, nil
}

func (r *fakeLinkRepo) SetActive(linkID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[linkID]
	if !ok {
		return repositories.ErrLinkNotFound
	}
	link.IsActive = active
	return nil
}

func (r *fakeLinkRepo) Delete(linkID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.links[linkID]; !ok {
		return repositories.ErrLinkNotFound
	}
	delete(r.links, linkID)
	return nil
}

func (r *fakeLinkRepo) DeactivateExpired(now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.links {
		if l.IsActive && l.Expired(now) {
			l.IsActive = false
			n++
		}
	}
	return n, nil
}

// --- batches ---

type fakeBatchRepo struct {
	mu      *sync.Mutex
	batches map[string]*models.Batch
}

func newFakeBatchRepo(mu *sync.Mutex) *fakeBatchRepo {
	return &fakeBatchRepo{mu: mu, batches: map[string]*models.Batch{}}
}

func (r *fakeBatchRepo) Create(batch *models.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch.ID = uuid.NewString()
	r.batches[batch.ID] = batch
	return nil
}

func (r *fakeBatchRepo) FindByID(id string) (*models.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.batches[id]; ok {
		snapshot := *b
		return &snapshot, nil
	}
	return nil, repositories.ErrBatchNotFound
}

func (r *fakeBatchRepo) ListByLink(linkID string) ([]models.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Batch
	for _, b := range r.batches {
		if b.LinkID == linkID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) SetStatus(batchID string, from, to models.BatchStatus) error {
	if !from.CanTransition(to) {
		return repositories.ErrBatchStatusFrozen
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[batchID]
	if !ok {
		return repositories.ErrBatchNotFound
	}
	if b.Status != from {
		return repositories.ErrBatchStatusFrozen
	}
	b.Status = to
	return nil
}

func (r *fakeBatchRepo) FailStuck(olderThan time.Time) (int64, error) {
	return 0, nil
}

// --- permissions ---

type fakePermRepo struct {
	mu    *sync.Mutex
	perms map[string]*models.Permission // linkID|email
}

func newFakePermRepo(mu *sync.Mutex) *fakePermRepo {
	return &fakePermRepo{mu: mu, perms: map[string]*models.Permission{}}
}

func permKey(linkID, email string) string {
	return linkID + "|" + email
}

func (r *fakePermRepo) Enroll(tx *gorm.DB, linkID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enrollLocked(linkID, email)
}

func (r *fakePermRepo) enrollLocked(linkID, email string) error {
	key := permKey(linkID, email)
	if p, ok := r.perms[key]; ok {
		p.LastActivityAt = time.Now()
		return nil
	}
	perm := &models.Permission{
		LinkID:         linkID,
		Email:          email,
		Role:           models.RoleUploader,
		LastActivityAt: time.Now(),
	}
	perm.ID = uuid.NewString()
	r.perms[key] = perm
	return nil
}

func (r *fakePermRepo) FindByLinkAndEmail(linkID, email string) (*models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.perms[permKey(linkID, email)]; ok {
		snapshot := *p
		return &snapshot, nil
	}
	return nil, repositories.ErrPermissionNotFound
}

func (r *fakePermRepo) ListByLink(linkID string) ([]models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Permission
	for _, p := range r.perms {
		if p.LinkID == linkID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePermRepo) Promote(linkID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.perms[permKey(linkID, email)]
	if !ok {
		return repositories.ErrPermissionNotFound
	}
	if p.Role != models.RoleUploader {
		return repositories.ErrRoleTransition
	}
	p.Role = models.RoleEditor
	return nil
}

func (r *fakePermRepo) MarkVerified(linkID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.perms[permKey(linkID, email)]
	if !ok {
		return repositories.ErrPermissionNotFound
	}
	p.IsVerified = true
	return nil
}

func (r *fakePermRepo) Touch(linkID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.perms[permKey(linkID, email)]
	if !ok {
		return repositories.ErrPermissionNotFound
	}
	p.LastActivityAt = time.Now()
	return nil
}

// --- files ---

// fakeFileRepo mirrors the production admission semantics: the capacity
// check and the counter bump happen under one lock, so concurrent ingests
// race exactly like conditional UPDATEs would.
type fakeFileRepo struct {
	mu         *sync.Mutex
	link       *models.CollectionLink
	account    *models.Account
	perms      *fakePermRepo
	batches    *fakeBatchRepo
	files      map[string]*models.File
	failIngest error
}

func newFakeFileRepo(mu *sync.Mutex, link *models.CollectionLink, account *models.Account, perms *fakePermRepo, batches *fakeBatchRepo) *fakeFileRepo {
	return &fakeFileRepo{
		mu:      mu,
		link:    link,
		account: account,
		perms:   perms,
		batches: batches,
		files:   map[string]*models.File{},
	}
}

func (r *fakeFileRepo) Ingest(file *models.File, batch *models.Batch, accountID, uploaderEmail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failIngest != nil {
		err := r.failIngest
		r.failIngest = nil
		return err
	}

	if r.link.UsageUsed+file.Size > r.link.UsageLimit {
		return appErrors.LinkCapacityExceeded(r.link.UsageLimit, r.link.UsageUsed)
	}
	if r.link.FileCount+1 > r.link.MaxFiles {
		return appErrors.LinkFileLimitExceeded(r.link.MaxFiles, r.link.FileCount)
	}
	if r.account.UsageUsed+file.Size > r.account.UsageLimit {
		return appErrors.AccountCapacityExceeded(r.account.UsageLimit, r.account.UsageUsed)
	}

	r.link.UsageUsed += file.Size
	r.link.FileCount++
	r.account.UsageUsed += file.Size

	if uploaderEmail != "" {
		if err := r.perms.enrollLocked(*file.LinkID, uploaderEmail); err != nil {
			return err
		}
	}

	file.ID = uuid.NewString()
	r.files[file.ID] = file
	if stored, ok := r.batches.batches[batch.ID]; ok {
		stored.TotalFiles++
		stored.TotalSize += file.Size
	}
	return nil
}

func (r *fakeFileRepo) CreateOwnerFile(file *models.File, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.account.UsageUsed+file.Size > r.account.UsageLimit {
		return appErrors.AccountCapacityExceeded(r.account.UsageLimit, r.account.UsageUsed)
	}
	r.account.UsageUsed += file.Size
	file.ID = uuid.NewString()
	r.files[file.ID] = file
	return nil
}

func (r *fakeFileRepo) FindByID(id string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.files[id]; ok {
		snapshot := *f
		return &snapshot, nil
	}
	return nil, repositories.ErrFileNotFound
}

func (r *fakeFileRepo) ListByFolder(folderID string) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.File
	for _, f := range r.files {
		if f.FolderID == folderID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) ListByBatch(batchID string) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.File
	for _, f := range r.files {
		if f.BatchID != nil && *f.BatchID == batchID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) Delete(fileID, accountID string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[fileID]
	if !ok {
		return nil, repositories.ErrFileNotFound
	}
	delete(r.files, fileID)
	r.account.UsageUsed -= f.Size
	if f.LinkID != nil {
		r.link.UsageUsed -= f.Size
		r.link.FileCount--
	}
	return f, nil
}

func (r *fakeFileRepo) Resize(fileID, accountID string, newSize int64) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[fileID]
	if !ok {
		return nil, repositories.ErrFileNotFound
	}
	delta := newSize - f.Size
	if delta > 0 && r.account.UsageUsed+delta > r.account.UsageLimit {
		return nil, appErrors.AccountCapacityExceeded(r.account.UsageLimit, r.account.UsageUsed)
	}
	r.account.UsageUsed += delta
	if f.LinkID != nil {
		if delta > 0 && r.link.UsageUsed+delta > r.link.UsageLimit {
			r.account.UsageUsed -= delta
			return nil, appErrors.LinkCapacityExceeded(r.link.UsageLimit, r.link.UsageUsed)
		}
		r.link.UsageUsed += delta
	}
	f.Size = newSize
	snapshot := *f
	return &snapshot, nil
}

// --- storage ---

type fakeStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: map[string][]byte{}}
}

func (s *fakeStorage) Save(ctx context.Context, path string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = data
	return nil
}

func (s *fakeStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, path)
	return nil
}

func (s *fakeStorage) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[path]
	return ok, nil
}

func (s *fakeStorage) GetURL(ctx context.Context, path string) (string, error) {
	return "/files/" + path, nil
}

func (s *fakeStorage) GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return "/signed/" + path, nil
}

func (s *fakeStorage) GetSize(ctx context.Context, path string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[path]
	if !ok {
		return 0, fmt.Errorf("blob not found: %s", path)
	}
	return int64(len(data)), nil
}

func (s *fakeStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// --- notifications ---

type recordingNotifier struct {
	mu             sync.Mutex
	codes          map[string]string // email -> code
	batchCompleted int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{codes: map[string]string{}}
}

func (n *recordingNotifier) SendVerificationCode(to string, link *models.CollectionLink, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[to] = code
}

func (n *recordingNotifier) NotifyBatchCompleted(account *models.Account, link *models.CollectionLink, batch *models.Batch) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batchCompleted++
}

func (n *recordingNotifier) codeFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}
