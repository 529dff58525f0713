package auth

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvictor/medchain/storage"
	"github.com/tranvictor/medchain/wallet"
)

var (
	admin    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	hospital = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	stranger = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func newTestService() (*Service, storage.Store) {
	store := storage.NewMemoryStore()
	return NewService(NewResolver(DefaultRoleTable), store), store
}

func TestResolveWalletAddressIgnoresCase(t *testing.T) {
	r := NewResolver(DefaultRoleTable)
	for _, input := range []string{
		"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		"0xF39FD6E51AAD88F6F4CE6AB8827279CFFFB92266",
	} {
		entry, err := r.ResolveString(input)
		require.NoError(t, err, input)
		assert.Equal(t, RoleAdmin, entry.Role)
		assert.Equal(t, "System Administrator", entry.DisplayName)
	}
}

func TestResolveUnknownAddress(t *testing.T) {
	r := NewResolver(DefaultRoleTable)
	_, err := r.ResolveWalletAddress(stranger)
	require.ErrorIs(t, err, ErrUnauthorizedAddress)

	var unauthorized *UnauthorizedAddressError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, stranger, unauthorized.Address)
	assert.Len(t, unauthorized.Allowed, 5)
}

func TestRolePermissions(t *testing.T) {
	cases := map[Role][]Permission{
		RoleManufacturer: {PermCreateBatch, PermAIForecasting, PermGenerateQR},
		RoleDistributor:  {PermTransferBatch, PermAIForecasting, PermTrackInventory},
		RolePatient:      {PermAIForecasting},
		RolePublicUser:   {PermVerifyDrug, PermViewPublicData},
		RoleGuest:        {PermVerifyDrug},
	}
	for role, perms := range cases {
		assert.ElementsMatch(t, perms, role.Permissions().List(), role.String())
	}
	assert.Len(t, RoleAdmin.Permissions().List(), 8)
	assert.True(t, RoleHospital.Permissions().Has(PermHealthRecords))
	assert.False(t, RoleGuest.Permissions().Has(PermCreateBatch))
}

func TestPermissionSetJSON(t *testing.T) {
	content, err := json.Marshal(RolePublicUser.Permissions())
	require.NoError(t, err)
	assert.JSONEq(t, `["verify_drug","view_public_data"]`, string(content))

	var set PermissionSet
	assert.Error(t, json.Unmarshal([]byte(`["verify_drug","fly"]`), &set))
}

func TestFindRole(t *testing.T) {
	cases := map[string]Role{
		"manu":        RoleManufacturer,
		"public user": RolePublicUser,
		"Hospital":    RoleHospital,
		"distrib":     RoleDistributor,
	}
	for hint, want := range cases {
		got, err := FindRole(hint)
		require.NoError(t, err, hint)
		assert.Equal(t, want, got, hint)
	}
	_, err := FindRole("zzz")
	assert.Error(t, err)
}

func TestLoginWithWalletPersists(t *testing.T) {
	s, store := newTestService()
	session, err := s.LoginWithWallet(hospital, 31337, "localhost")
	require.NoError(t, err)
	assert.Equal(t, RoleHospital, session.Role)
	assert.True(t, s.HasPermission(PermDispenseDrug))
	assert.True(t, s.IsSupplyChainActor())

	fresh := NewService(NewResolver(DefaultRoleTable), store)
	restored, ok := fresh.Restore()
	require.True(t, ok)
	assert.Equal(t, hospital, *restored.Address)
	assert.Equal(t, KindWallet, restored.Kind)
	assert.True(t, fresh.HasRole(RoleHospital))
}

func TestLoginWithUnknownWalletCreatesNoSession(t *testing.T) {
	s, store := newTestService()
	_, err := s.LoginWithWallet(stranger, 31337, "localhost")
	assert.ErrorIs(t, err, ErrUnauthorizedAddress)
	assert.False(t, s.IsAuthenticated())
	_, found := store.Get(SessionKey)
	assert.False(t, found)
}

func TestLoginWithEmail(t *testing.T) {
	s, _ := newTestService()

	_, err := s.LoginWithEmail("not-an-email", "")
	assert.Error(t, err)
	_, err = s.LoginWithEmail("user@example.com", "12345")
	assert.Error(t, err)
	assert.False(t, s.IsAuthenticated())

	session, err := s.LoginWithEmail("user@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, RolePublicUser, session.Role)
	assert.False(t, session.Verified)
	assert.Equal(t, "user", session.Name)

	session, err = s.LoginWithEmail("user@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, session.Verified)
	assert.True(t, s.IsPublicUser())
	assert.False(t, s.HasPermission(PermCreateBatch))
}

func TestGuestSessions(t *testing.T) {
	s, _ := newTestService()
	first, err := s.ContinueAsGuest()
	require.NoError(t, err)
	second, err := s.ContinueAsGuest()
	require.NoError(t, err)

	for _, g := range []Session{first, second} {
		assert.Equal(t, RoleGuest, g.Role)
		assert.Equal(t, []Permission{PermVerifyDrug}, g.Permissions.List())
		assert.True(t, strings.HasPrefix(g.SessionID, "guest_"))
	}
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestLogoutClearsStorage(t *testing.T) {
	s, store := newTestService()
	_, err := s.ContinueAsGuest()
	require.NoError(t, err)
	require.NoError(t, s.Logout())

	fresh := NewService(NewResolver(DefaultRoleTable), store)
	_, ok := fresh.Restore()
	assert.False(t, ok)
}

func TestRestoreDiscardsCorruptSession(t *testing.T) {
	for name, content := range map[string]string{
		"bad json":        `{"user":`,
		"unknown role":    `{"user":{"role":"pirate","kind":"email","permissions":[]},"type":"email"}`,
		"unknown kind":    `{"user":{"role":"guest","kind":"robot","permissions":[]},"type":"robot"}`,
		"bad permission":  `{"user":{"role":"guest","kind":"guest","permissions":["fly"]},"type":"guest"}`,
		"stranger wallet": `{"user":{"address":"0x1111111111111111111111111111111111111111","role":"admin","kind":"wallet","permissions":[]},"type":"wallet"}`,
	} {
		t.Run(name, func(t *testing.T) {
			s, store := newTestService()
			require.NoError(t, store.Set(SessionKey, content))
			_, ok := s.Restore()
			assert.False(t, ok)
			_, found := store.Get(SessionKey)
			assert.False(t, found)
		})
	}
}

func TestRestoreRecomputesPermissions(t *testing.T) {
	s, store := newTestService()
	content := `{"user":{"email":"a@b.c","role":"admin","kind":"email","permissions":["manage_users"]},"type":"email"}`
	require.NoError(t, store.Set(SessionKey, content))

	session, ok := s.Restore()
	require.True(t, ok)
	assert.Equal(t, RolePublicUser, session.Role)
	assert.False(t, s.HasPermission(PermManageUsers))
}

func TestReconcile(t *testing.T) {
	s, _ := newTestService()
	require.NoError(t, s.Reconcile(wallet.Connection{}))
	assert.False(t, s.IsAuthenticated())

	require.NoError(t, s.Reconcile(wallet.Connection{State: wallet.Connected, Address: stranger, ChainID: 31337}))
	assert.False(t, s.IsAuthenticated())

	require.NoError(t, s.Reconcile(wallet.Connection{State: wallet.Connected, Address: admin, ChainID: 31337}))
	assert.True(t, s.HasRole(RoleAdmin))

	require.NoError(t, s.Reconcile(wallet.Connection{State: wallet.Connected, Address: hospital, ChainID: 31337}))
	assert.True(t, s.HasRole(RoleHospital))

	require.NoError(t, s.Reconcile(wallet.Connection{State: wallet.Connected, Address: stranger, ChainID: 31337}))
	assert.False(t, s.IsAuthenticated())
}

func TestHandleWalletChange(t *testing.T) {
	s, store := newTestService()
	_, err := s.LoginWithWallet(admin, 31337, "localhost")
	require.NoError(t, err)

	// a chain change reloads from storage, the session survives it
	require.NoError(t, s.HandleWalletChange(wallet.Change{Reload: true}))
	assert.True(t, s.HasRole(RoleAdmin))

	require.NoError(t, s.HandleWalletChange(wallet.Change{Connection: wallet.Connection{}}))
	assert.False(t, s.IsAuthenticated())
	_, found := store.Get(SessionKey)
	assert.False(t, found)

	_, err = s.LoginWithEmail("user@example.com", "")
	require.NoError(t, err)
	require.NoError(t, s.HandleWalletChange(wallet.Change{Connection: wallet.Connection{}}))
	assert.True(t, s.IsPublicUser())
}

func TestWalletChangesLeaveEmailAndGuestSessions(t *testing.T) {
	connected := wallet.Connection{State: wallet.Connected, Address: admin, ChainID: 31337}

	s, _ := newTestService()
	_, err := s.LoginWithEmail("user@example.com", "")
	require.NoError(t, err)
	require.NoError(t, s.HandleWalletChange(wallet.Change{Connection: connected}))
	require.NoError(t, s.HandleWalletChange(wallet.Change{Connection: connected, Reload: true}))
	session, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, KindEmail, session.Kind)
	assert.Equal(t, "user@example.com", session.Email)
	assert.False(t, s.HasRole(RoleAdmin))

	s, _ = newTestService()
	guest, err := s.ContinueAsGuest()
	require.NoError(t, err)
	for _, conn := range []wallet.Connection{connected, {}, {State: wallet.Connected, Address: stranger, ChainID: 31337}} {
		require.NoError(t, s.HandleWalletChange(wallet.Change{Connection: conn}))
		session, ok := s.Current()
		require.True(t, ok)
		assert.Equal(t, guest.SessionID, session.SessionID)
		assert.True(t, s.HasRole(RoleGuest))
	}
}

type fakeChanges struct {
	feed event.Feed
}

func (f *fakeChanges) SubscribeChanges(ch chan<- wallet.Change) event.Subscription {
	return f.feed.Subscribe(ch)
}

func TestFollow(t *testing.T) {
	s, _ := newTestService()
	src := &fakeChanges{}
	sub := s.Follow(src)
	defer sub.Unsubscribe()

	src.feed.Send(wallet.Change{Connection: wallet.Connection{State: wallet.Connected, Address: admin, ChainID: 31337}})
	assert.Eventually(t, func() bool { return s.HasRole(RoleAdmin) }, 2*time.Second, 10*time.Millisecond)

	src.feed.Send(wallet.Change{Connection: wallet.Connection{}})
	assert.Eventually(t, func() bool { return !s.IsAuthenticated() }, 2*time.Second, 10*time.Millisecond)
}
