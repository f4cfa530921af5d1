package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"priceoracle/internal/message"
	"priceoracle/pkg/jwt"
	"priceoracle/pkg/signature"
)

type signedOutput struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a secp256k1 key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signature.GenerateKey()
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
				"private_key": key.Hex(),
				"public_key":  key.Public().Hex(),
			})
		},
	}
}

func newSignCmd(v *viper.Viper) *cobra.Command {
	sign := &cobra.Command{
		Use:   "sign",
		Short: "Sign a price quote or an access request",
	}

	price := &cobra.Command{
		Use:   "price",
		Short: "Sign a price quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(v, "key", "market", "price", "nonce"); err != nil {
				return err
			}
			p, err := decimal.NewFromString(v.GetString("price"))
			if err != nil {
				return fmt.Errorf("--price: %w", err)
			}
			createdAt := v.GetUint64("created-at")
			if createdAt == 0 {
				createdAt = uint64(time.Now().Unix())
			}
			nonce, err := uintFlag(v, "nonce")
			if err != nil {
				return err
			}
			q := message.PriceQuote{
				MarketID:  v.GetString("market"),
				Price:     p,
				Nonce:     nonce,
				CreatedAt: createdAt,
			}
			return signAndPrint(cmd, v.GetString("key"), q.String())
		},
	}
	price.Flags().String("key", "", "hex private key")
	price.Flags().String("market", "", "market id, e.g. GATEIO:XRD_USDT")
	price.Flags().String("price", "", "decimal price")
	price.Flags().String("nonce", "", "quote nonce")
	price.Flags().Uint64("created-at", 0, "unix seconds (default now)")

	request := &cobra.Command{
		Use:   "request",
		Short: "Sign an access request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(v, "key", "market", "nonce", "public-key", "address"); err != nil {
				return err
			}
			nonce, err := uintFlag(v, "nonce")
			if err != nil {
				return err
			}
			r := message.AccessRequest{
				MarketID:  v.GetString("market"),
				Nonce:     nonce,
				PublicKey: v.GetString("public-key"),
				Address:   v.GetString("address"),
			}
			return signAndPrint(cmd, v.GetString("key"), r.String())
		},
	}
	request.Flags().String("key", "", "hex private key")
	request.Flags().String("market", "", "market id")
	request.Flags().String("nonce", "", "request nonce")
	request.Flags().String("public-key", "", "application public key")
	request.Flags().String("address", "", "application account address")

	sign.AddCommand(price, request)
	return sign
}

func newVerifyCmd(v *viper.Viper) *cobra.Command {
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signed price quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(v, "public-key", "message", "signature"); err != nil {
				return err
			}
			msg := v.GetString("message")
			ok, err := signature.Verify([]byte(msg), v.GetString("signature"), v.GetString("public-key"))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("signature does not match")
			}
			q, err := message.ParsePriceQuote(msg)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(q)
		},
	}
	verify.Flags().String("public-key", "", "oracle public key")
	verify.Flags().String("message", "", "wire message")
	verify.Flags().String("signature", "", "hex DER signature")
	return verify
}

func newAdminTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Issue an admin token for fee collection and nonce updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(v, "secret"); err != nil {
				return err
			}
			token, err := jwt.GenerateToken(v.GetString("secret"), v.GetString("subject"), v.GetDuration("ttl"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().String("secret", "", "ADMIN_JWT_SECRET of the server")
	cmd.Flags().String("subject", "admin", "token subject")
	cmd.Flags().Duration("ttl", time.Hour, "token lifetime (0 never expires)")
	return cmd
}

// uintFlag parses a decimal u64; viper's own casting stops at int64.
func uintFlag(v *viper.Viper, name string) (uint64, error) {
	n, err := strconv.ParseUint(v.GetString(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return n, nil
}

func signAndPrint(cmd *cobra.Command, keyHex, msg string) error {
	key, err := signature.ParsePrivateKey(keyHex)
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(signedOutput{Message: msg, Signature: key.Sign([]byte(msg))})
}
