package elefantpg

import (
	"context"
	"crypto/md5" //nolint:gosec // required by the wire protocol's MD5 auth scheme
	"encoding/hex"

	"github.com/elefantpg/elefantpg-go/pgerror"
	"github.com/elefantpg/elefantpg-go/protocol"
)

// authenticate drives the authentication engine from spec.md section 4.3:
// Awaiting -> (on AuthenticationOk) Authenticated, dispatching cleartext,
// MD5 and SASL/SCRAM-SHA-256 challenges as they arrive.
func (c *Conn) authenticate(ctx context.Context, cfg *config) error {
	for {
		var kind protocol.BackendMessage
		err := c.withDeadline(ctx, func() error {
			var readErr error
			kind, readErr = c.reader.ReadTypedMsg()
			return readErr
		})
		if err != nil {
			return pgerror.Wrap(pgerror.KindIO, true, err, "reading authentication message")
		}

		switch kind {
		case protocol.BackendErrorResponse:
			se, err := readServerError(c.reader)
			if err != nil {
				return err
			}
			return se

		case protocol.BackendNoticeResponse:
			fields, err := protocol.DecodeErrorFields(c.reader)
			if err != nil {
				return err
			}
			c.logger.Info().Str("message", fields[protocol.ErrFieldMsgPrimary]).Msg("notice during authentication")
			continue

		case protocol.BackendAuth:
			// handled below

		default:
			return pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s while authenticating", kind)
		}

		auth, err := protocol.DecodeAuthentication(c.reader)
		if err != nil {
			return err
		}

		switch auth.Type {
		case protocol.AuthTypeOK:
			return nil

		case protocol.AuthTypeCleartextPassword:
			if err := c.sendPassword(ctx, cfg.password); err != nil {
				return err
			}

		case protocol.AuthTypeMD5Password:
			if err := c.sendPassword(ctx, md5Password(cfg.user, cfg.password, auth.Salt)); err != nil {
				return err
			}

		case protocol.AuthTypeSASL:
			if err := c.authenticateSCRAM(ctx, cfg, auth.Mechanisms); err != nil {
				return err
			}

		default:
			return pgerror.Fatalf(pgerror.KindAuthUnsupported, "unsupported authentication type %d", auth.Type)
		}
	}
}

func (c *Conn) sendPassword(ctx context.Context, password string) error {
	return c.withDeadline(ctx, func() error {
		msg := protocol.PasswordMessage{Password: password}
		return msg.Encode(c.writer)
	})
}

// md5Password computes "md5" + md5(md5(password+user) + salt) hex-encoded,
// the PostgreSQL client MD5 authentication formula (spec.md section 4.3).
func md5Password(user, password string, salt [4]byte) string {
	inner := md5.Sum([]byte(password + user)) //nolint:gosec
	innerHex := hex.EncodeToString(inner[:])
	outer := md5.Sum(append([]byte(innerHex), salt[:]...)) //nolint:gosec
	return "md5" + hex.EncodeToString(outer[:])
}
