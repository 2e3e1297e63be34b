// Package trust wraps signing and data validation for the router.
// With the "insecure" keychain every packet is signed with SHA-256 and
// incoming data is accepted without validation.
package trust

import (
	"fmt"
	"os"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/log"
	"github.com/named-data/ndnd/std/ndn"
	"github.com/named-data/ndnd/std/object/storage"
	sec "github.com/named-data/ndnd/std/security"
	"github.com/named-data/ndnd/std/security/keychain"
	sig "github.com/named-data/ndnd/std/security/signer"
	"github.com/named-data/ndnd/std/security/trust_schema"

	"github.com/named-data/nlsr/config"
)

type Security struct {
	engine ndn.Engine
	trust  *sec.TrustConfig
}

func NewSecurity(c *config.Config, engine ndn.Engine) (*Security, error) {
	s := &Security{engine: engine}

	if c.KeyChainUri == "insecure" {
		log.Warn(s, "Security is disabled - insecure mode")
		return s, nil
	}

	kc, err := keychain.NewKeyChain(c.KeyChainUri, storage.NewMemoryStore())
	if err != nil {
		return nil, fmt.Errorf("failed to open keychain: %w", err)
	}

	schemaBytes, err := os.ReadFile(c.TrustSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust schema: %w", err)
	}
	schema, err := trust_schema.NewLvsSchema(schemaBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trust schema: %w", err)
	}

	s.trust, err = sec.NewTrustConfig(kc, schema, c.TrustAnchorNames())
	if err != nil {
		return nil, fmt.Errorf("failed to create trust config: %w", err)
	}
	return s, nil
}

func (s *Security) String() string {
	return "trust"
}

// Signer returns the signer to use for data under name.
func (s *Security) Signer(name enc.Name) ndn.Signer {
	if s.trust == nil {
		return sig.NewSha256Signer()
	}
	if signer := s.trust.Suggest(name); signer != nil {
		return signer
	}
	log.Warn(s, "No signer suggested, falling back to SHA-256", "name", name)
	return sig.NewSha256Signer()
}

// Validate checks the signature and trust chain of a received data
// packet, fetching certificates over the network as needed.
func (s *Security) Validate(data ndn.Data, sigCov enc.Wire, callback func(bool, error)) {
	if s.trust == nil {
		callback(true, nil)
		return
	}

	s.trust.Validate(sec.TrustConfigValidateArgs{
		Data:       data,
		DataSigCov: sigCov,
		Fetch:      s.fetch,
		Callback:   callback,
	})
}

func (s *Security) fetch(name enc.Name, cfg *ndn.InterestConfig, callback ndn.ExpressCallbackFunc) {
	interest, err := s.engine.Spec().MakeInterest(name, cfg, nil, nil)
	if err != nil {
		callback(ndn.ExpressCallbackArgs{Result: ndn.InterestResultError, Error: err})
		return
	}
	if err := s.engine.Express(interest, callback); err != nil {
		callback(ndn.ExpressCallbackArgs{Result: ndn.InterestResultError, Error: err})
	}
}
