// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/jcmturner/gokrb5/v8/iana/nametype"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/types"
	"github.com/sirupsen/logrus"
)

// ErrCredentialAcquire indicates that a requested scoped credential could
// not be acquired. This is the one fatal startup condition: the daemon must
// not begin serving without the identity it was asked to assume.
var ErrCredentialAcquire = errors.New("cannot acquire credentials")

// Credential is the security-context-acquisition scope shared read-only by
// every accepted connection. It is either unrestricted, accepting any
// service identity the keytab supports, or scoped to a single service
// principal pinned at startup.
type Credential struct {
	principal string
	realm     string
	kt        *keytab.Keytab
}

// Scoped reports whether the credential is pinned to one service principal.
func (c *Credential) Scoped() bool {
	return c.principal != ""
}

// Principal returns the pinned service principal, or "" when unrestricted.
func (c *Credential) Principal() string {
	return c.principal
}

// Keytab returns the underlying keytab for the session layer. May be nil for
// an unrestricted credential whose keytab could not be read; the session
// layer then fails per connection rather than at startup.
func (c *Credential) Keytab() *keytab.Keytab {
	return c.kt
}

// Release drops the credential. Called once at normal daemon exit.
func (c *Credential) Release() {
	c.kt = nil
}

// Normally you want the session layer to pick the appropriate key from the
// keytab for each incoming connection, so verification only checks that the
// requested principal has an entry with some usable enctype.
var verifyEtypes = []int32{
	etypeID.AES256_CTS_HMAC_SHA1_96,
	etypeID.AES128_CTS_HMAC_SHA1_96,
	etypeID.AES256_CTS_HMAC_SHA384_192,
	etypeID.AES128_CTS_HMAC_SHA256_128,
	etypeID.RC4_HMAC,
}

// AcquireCredential loads the keytab and, when service is nonempty, pins the
// credential to that service principal ("primary/instance" or
// "primary/instance@REALM"), verifying that the keytab can serve it. Scoped
// acquisition failure is an error; unrestricted acquisition degrades with a
// warning when the keytab is unreadable.
func AcquireCredential(keytabPath, service string) (*Credential, error) {
	kt, err := keytab.Load(keytabPath)
	if service == "" {
		if err != nil {
			logrus.Warnf("cannot read keytab %s: %v", keytabPath, err)
			return &Credential{}, nil
		}
		return &Credential{kt: kt}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading keytab %s: %v", ErrCredentialAcquire, keytabPath, err)
	}
	spn, realm, _ := strings.Cut(service, "@")
	princ := types.NewPrincipalName(nametype.KRB_NT_SRV_HST, spn)
	if !keytabHasPrincipal(kt, princ, realm) {
		return nil, fmt.Errorf("%w: keytab %s has no usable key for %s", ErrCredentialAcquire, keytabPath, service)
	}
	return &Credential{principal: spn, realm: realm, kt: kt}, nil
}

func keytabHasPrincipal(kt *keytab.Keytab, princ types.PrincipalName, realm string) bool {
	for _, etype := range verifyEtypes {
		if _, _, err := kt.GetEncryptionKey(princ, realm, 0, etype); err == nil {
			return true
		}
	}
	return false
}
