package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"featurepull/blob"
	"featurepull/internal/descriptor"
	"featurepull/internal/faults"
	"featurepull/internal/featurestore"
	"featurepull/internal/provision"
	"featurepull/internal/table"
)

var testCreds = blob.Credentials{
	EndpointURL:     "http://minio:9000",
	AccessKeyID:     "minioadmin",
	SecretAccessKey: "minioadmin",
}

type fakeStore struct {
	fail  map[string]bool
	calls int
}

func (f *fakeStore) Fetch(_ context.Context, _, key, destDir string) (string, error) {
	f.calls++
	if f.fail[key] {
		return "", blob.Wrap(blob.CodeObjectNotFound, false, errors.New("NoSuchKey"))
	}
	p := filepath.Join(destDir, key)
	return p, os.WriteFile(p, []byte(key), 0o644)
}

func dialer(s blob.Store) blob.Dialer {
	return func(context.Context, blob.Credentials) (blob.Store, error) { return s, nil }
}

type fakeJob struct {
	t *table.Table
}

func (j *fakeJob) ToTable(context.Context) (*table.Table, error) { return j.t, nil }

type fakeProvider struct {
	calls    int
	refs     []string
	entities *table.Table
	job      *fakeJob
	closed   int
}

func (p *fakeProvider) HistoricalFeatures(_ context.Context, refs []string, entities *table.Table) (featurestore.RetrievalJob, error) {
	p.calls++
	p.refs, p.entities = refs, entities
	return p.job, nil
}

func (p *fakeProvider) Close() error { p.closed++; return nil }

func factoryFor(p featurestore.Provider) ProviderFactory {
	return func(context.Context, string) (featurestore.Provider, error) { return p, nil }
}

func newConfig(t *testing.T) Config {
	return Config{
		Project:        "clicks",
		DataPath:       filepath.Join(t.TempDir(), "t1"),
		RegistryBucket: "deploy-mlops",
		DataBucket:     "deploy-data",
		RepoPath:       t.TempDir(),
		Credentials:    testCreds,
	}
}

func entityTable(t *testing.T) *table.Table {
	et := table.New("session_id", featurestore.TimestampColumn)
	require.NoError(t, et.Append(int64(218564), time.Date(2018, 10, 15, 8, 58, 0, 0, time.UTC)))
	return et
}

func TestNew_WritesDescriptorWithProject(t *testing.T) {
	cfg := newConfig(t)
	e, err := New(context.Background(), cfg,
		WithDialer(dialer(&fakeStore{})), WithProviderFactory(factoryFor(&fakeProvider{})))
	require.NoError(t, err)
	require.Equal(t, StateSetupComplete, e.State())

	d, err := descriptor.Read(cfg.RepoPath)
	require.NoError(t, err)
	require.Equal(t, "clicks", d.Project)
	require.Equal(t, filepath.Join(cfg.DataPath, "registry.db"), d.Registry)
}

func TestNew_DescriptorWrittenEvenWhenFetchesFail(t *testing.T) {
	cfg := newConfig(t)
	st := &fakeStore{fail: map[string]bool{"registry.db": true, "online_store.db": true, "train.parquet": true, "view_log.parquet": true}}
	e, err := New(context.Background(), cfg, WithDialer(dialer(st)))
	require.NoError(t, err)
	require.Equal(t, StateSetupFailed, e.State())
	require.FileExists(t, descriptor.Path(cfg.RepoPath))
}

func TestNew_MissingCredentialsFailsBeforeAnyFetch(t *testing.T) {
	for _, drop := range []func(*blob.Credentials){
		func(c *blob.Credentials) { c.EndpointURL = "" },
		func(c *blob.Credentials) { c.AccessKeyID = "" },
		func(c *blob.Credentials) { c.SecretAccessKey = "" },
	} {
		cfg := newConfig(t)
		drop(&cfg.Credentials)
		dial := func(context.Context, blob.Credentials) (blob.Store, error) {
			t.Fatal("blob store must not be dialed without credentials")
			return nil, nil
		}
		_, err := New(context.Background(), cfg, WithDialer(dial))
		require.ErrorIs(t, err, faults.ErrPrecondition)
	}
}

func TestNew_MissingProjectIsConfigurationError(t *testing.T) {
	cfg := newConfig(t)
	cfg.Project = ""
	_, err := New(context.Background(), cfg, WithDialer(dialer(&fakeStore{})))
	require.ErrorIs(t, err, faults.ErrConfiguration)
}

func TestTrainingSet_DelegatesUnmodifiedWithoutFlatten(t *testing.T) {
	prov := &fakeProvider{job: &fakeJob{}}
	e, err := New(context.Background(), newConfig(t),
		WithDialer(dialer(&fakeStore{})), WithProviderFactory(factoryFor(prov)))
	require.NoError(t, err)

	refs := []string{"view_log_table:device_type"}
	et := entityTable(t)
	ft, err := e.TrainingSet(context.Background(), refs, et, false)
	require.NoError(t, err)
	require.Same(t, prov.job, ft.Job)
	require.Nil(t, ft.Table)
	require.Equal(t, refs, prov.refs)
	require.Same(t, et, prov.entities)
}

func TestTrainingSet_RefusedWhenRegistryFetchFails(t *testing.T) {
	for _, failing := range []string{"registry.db", "online_store.db"} {
		prov := &fakeProvider{job: &fakeJob{}}
		st := &fakeStore{fail: map[string]bool{failing: true}}
		e, err := New(context.Background(), newConfig(t),
			WithDialer(dialer(st)), WithProviderFactory(factoryFor(prov)))
		require.NoError(t, err)
		require.Equal(t, StateSetupFailed, e.State())
		require.Equal(t, 4, st.calls, "remaining fetches still run")
		require.ErrorIs(t, e.SetupErr(), faults.ErrStorageFetch)

		_, err = e.TrainingSet(context.Background(), []string{"t:f1"}, entityTable(t), true)
		require.ErrorIs(t, err, faults.ErrSetupIncomplete)
		require.ErrorContains(t, err, "online/offline store setup did not complete")
		require.Zero(t, prov.calls)
	}
}

func TestTrainingSet_ProviderOpenFailureLatchesFailed(t *testing.T) {
	boom := errors.New("registry unreadable")
	e, err := New(context.Background(), newConfig(t),
		WithDialer(dialer(&fakeStore{})),
		WithProviderFactory(func(context.Context, string) (featurestore.Provider, error) { return nil, boom }))
	require.NoError(t, err)
	require.Equal(t, StateSetupFailed, e.State())
	_, err = e.TrainingSet(context.Background(), nil, nil, false)
	require.ErrorIs(t, err, faults.ErrSetupIncomplete)
	require.ErrorIs(t, err, boom)
}

func TestWithProvider_SkipsDescriptor(t *testing.T) {
	cfg := newConfig(t)
	prov := &fakeProvider{job: &fakeJob{}}
	e, err := New(context.Background(), cfg, WithDialer(dialer(&fakeStore{})), WithProvider(prov))
	require.NoError(t, err)
	require.Equal(t, StateSetupComplete, e.State())
	require.NoFileExists(t, descriptor.Path(cfg.RepoPath))

	require.NoError(t, e.Cleanup())
	require.Zero(t, prov.closed, "injected providers belong to the caller")
}

func TestCleanup_RemovesEverythingAndIsIdempotent(t *testing.T) {
	cfg := newConfig(t)
	prov := &fakeProvider{job: &fakeJob{}}
	e, err := New(context.Background(), cfg,
		WithDialer(dialer(&fakeStore{})), WithProviderFactory(factoryFor(prov)))
	require.NoError(t, err)

	require.NoError(t, e.Cleanup())
	for _, a := range provision.Required {
		require.NoFileExists(t, filepath.Join(cfg.DataPath, a.Name))
	}
	require.NoDirExists(t, cfg.DataPath)
	require.NoFileExists(t, descriptor.Path(cfg.RepoPath))
	require.Equal(t, 1, prov.closed)

	require.NoError(t, e.Cleanup(), "second cleanup tolerates missing state")
	require.Equal(t, 1, prov.closed)
}

func TestCleanup_AfterFailedSetup(t *testing.T) {
	cfg := newConfig(t)
	e, err := New(context.Background(), cfg, WithDialer(dialer(&fakeStore{fail: map[string]bool{"view_log.parquet": true}})))
	require.NoError(t, err)
	require.Equal(t, StateSetupFailed, e.State())

	require.NoError(t, e.Cleanup())
	require.NoDirExists(t, cfg.DataPath)
	require.NoFileExists(t, descriptor.Path(cfg.RepoPath))
}

func TestEndToEnd_FlattenedTrainingSet(t *testing.T) {
	cfg := newConfig(t)
	cfg.DataPath = filepath.Join(t.TempDir(), "tmp", "t1")

	mock := table.New("t:f1", "t:f2")
	require.NoError(t, mock.Append(1.5, "a"))
	require.NoError(t, mock.Append(2.5, "b"))
	prov := &fakeProvider{job: &fakeJob{t: mock}}

	e, err := New(context.Background(), cfg,
		WithDialer(dialer(&fakeStore{})), WithProviderFactory(factoryFor(prov)))
	require.NoError(t, err)
	require.Equal(t, StateSetupComplete, e.State())
	require.True(t, e.Report().OK())

	ft, err := e.TrainingSet(context.Background(), []string{"t:f1", "t:f2"}, entityTable(t), true)
	require.NoError(t, err)
	require.Equal(t, []string{"t:f1", "t:f2"}, ft.Table.Columns)
	require.Equal(t, mock.Rows, ft.Table.Rows)
	require.NoError(t, e.Cleanup())
}

func TestState_String(t *testing.T) {
	require.Equal(t, "uninitialized", StateUninitialized.String())
	require.Equal(t, "setup_complete", StateSetupComplete.String())
	require.Equal(t, "setup_failed", StateSetupFailed.String())
}
