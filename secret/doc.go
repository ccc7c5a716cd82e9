// Package secret resolves credential values in configuration.
//
// The root API key and the JWT signing secret may be written inline or as
// references resolved at startup:
//
//	"root_api_key": "secretref:env:OPENVIKING_ROOT_KEY"
//	"jwt_secret":   "secretref:file:/run/secrets/ov_jwt"
//
// Values also undergo strict environment expansion (see ExpandEnvStrict),
// so "${OPENVIKING_ROOT_KEY}" works too; "$$" yields a literal "$".
package secret
