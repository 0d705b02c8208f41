package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"xdao.co/graphwire/reference"
)

// ErrUnknownRole reports a role that was never issued for an identity.
var ErrUnknownRole = errors.New("keys: unknown role")

// KeyStore keeps identity roots on the local filesystem and issues the keys
// references are signed and sealed with. Only the root seed is stored;
// everything else is derived from it on demand.
//
// Layout under Directory:
//
//	<identity>/root.key       ed25519 root seed (hex)
//	<identity>/identity.yaml  public keys issued so far
type KeyStore struct {
	Directory string
}

// Manifest lists the public half of what an identity has issued.
type Manifest struct {
	Identity   string          `yaml:"identity"`
	PublicKey  string          `yaml:"public_key"`
	Encryption string          `yaml:"encryption,omitempty"`
	Roles      map[string]Role `yaml:"roles,omitempty"`
}

// Role is one issued signing key.
type Role struct {
	Algorithm string `yaml:"algorithm"`
	PublicKey string `yaml:"public_key"`
}

// RoleNames returns the issued roles in sorted order.
func (m *Manifest) RoleNames() []string {
	out := make([]string, 0, len(m.Roles))
	for r := range m.Roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".graphwire", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

// Path returns the directory holding identity.
func (ks *KeyStore) Path(identity string) string {
	return filepath.Join(ks.Directory, identity)
}

func (ks *KeyStore) rootPath(identity string) string {
	return filepath.Join(ks.Path(identity), "root.key")
}

func (ks *KeyStore) manifestPath(identity string) string {
	return filepath.Join(ks.Path(identity), "identity.yaml")
}

func checkName(what, name string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, what)
	}
	return nil
}

func CheckKeyName(identity string) error { return checkName("identifier", identity) }
func CheckRole(role string) error        { return checkName("role", role) }

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

// Init stores seed as the root of identity and writes a fresh manifest.
func (ks *KeyStore) Init(identity string, seed []byte, overwrite bool) (*Manifest, error) {
	if err := CheckKeyName(identity); err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(ks.Path(identity), 0o700); err != nil {
		return nil, err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(ks.rootPath(identity), flags, 0o600)
	if err != nil {
		return nil, err
	}
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	m := &Manifest{Identity: identity, PublicKey: Ed25519PublicKeyFromSeed(seed)}
	return m, ks.saveManifest(m)
}

// Open loads identity for signing and decryption.
func (ks *KeyStore) Open(identity string) (*Identity, error) {
	if err := CheckKeyName(identity); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ks.rootPath(identity))
	if err != nil {
		return nil, err
	}
	root, err := ParseSeedHex(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", identity, err)
	}
	m, err := ks.loadManifest(identity)
	if err != nil {
		return nil, err
	}
	return &Identity{Manifest: *m, root: root}, nil
}

// AddRole issues a signing key for role and records it. An existing role is
// kept unless overwrite is set.
func (ks *KeyStore) AddRole(identity, role, alg string, overwrite bool) (Role, error) {
	id, err := ks.Open(identity)
	if err != nil {
		return Role{}, err
	}
	if _, ok := id.Roles[role]; ok && !overwrite {
		return Role{}, fmt.Errorf("role %q already exists for %s", role, identity)
	}
	if alg == "" {
		alg = AlgEd25519
	}
	s, err := DeriveRoleSigner(id.root, role, alg)
	if err != nil {
		return Role{}, err
	}
	r := Role{Algorithm: alg, PublicKey: s.PublicKey()}
	if id.Roles == nil {
		id.Roles = make(map[string]Role)
	}
	id.Roles[role] = r
	return r, ks.saveManifest(&id.Manifest)
}

// AddEncryption records the encryption key of identity so it can be
// published.
func (ks *KeyStore) AddEncryption(identity string) (*EncryptionKey, error) {
	id, err := ks.Open(identity)
	if err != nil {
		return nil, err
	}
	ek, err := id.EncryptionKey()
	if err != nil {
		return nil, err
	}
	id.Encryption = ek.PublicKeyString()
	return ek, ks.saveManifest(&id.Manifest)
}

// List returns the manifests of every stored identity, sorted by name.
func (ks *KeyStore) List() ([]Manifest, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := ks.loadManifest(entry.Name())
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

func (ks *KeyStore) loadManifest(identity string) (*Manifest, error) {
	data, err := os.ReadFile(ks.manifestPath(identity))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", ks.manifestPath(identity), err)
	}
	return &m, nil
}

func (ks *KeyStore) saveManifest(m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(ks.manifestPath(m.Identity), data, 0o600)
}

// Identity is an opened identity. It issues the key material each kind of
// reference needs.
type Identity struct {
	Manifest
	root []byte
}

// Signer returns the root signer, or the signer of an issued role.
func (id *Identity) Signer(role string) (Signer, error) {
	if role == "" {
		return NewEd25519Signer(id.root)
	}
	r, ok := id.Roles[role]
	if !ok {
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownRole, role, id.Identity)
	}
	return DeriveRoleSigner(id.root, role, r.Algorithm)
}

func (id *Identity) EncryptionKey() (*EncryptionKey, error) {
	return DeriveEncryptionKey(id.root)
}

// SessionKey returns the symmetric key this identity seals ref with.
func (id *Identity) SessionKey(ref string) ([]byte, error) {
	return DeriveSessionKey(id.root, ref)
}

// Material is what opening or sealing one reference takes.
type Material struct {
	KeyType    reference.KeyType
	SessionKey []byte
	Encryption *EncryptionKey
}

// Issue returns the material for a reference of type kt identified by ref:
// a derived session key for symmetric references and the identity's
// encryption key for asymmetric and notarized ones.
func (id *Identity) Issue(kt reference.KeyType, ref string) (Material, error) {
	m := Material{KeyType: kt}
	var err error
	switch kt {
	case reference.KeyNone:
	case reference.KeySymmetric:
		m.SessionKey, err = id.SessionKey(ref)
	case reference.KeyAsymmetric, reference.KeyNotarized:
		m.Encryption, err = id.EncryptionKey()
	default:
		err = fmt.Errorf("unknown key type %d", kt)
	}
	return m, err
}
