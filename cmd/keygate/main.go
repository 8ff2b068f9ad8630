package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"xdao.co/keygate/envelope"
	"xdao.co/keygate/handshake"
	"xdao.co/keygate/keys"
	"xdao.co/keygate/ledgerd"
	"xdao.co/keygate/reveald"
	"xdao.co/keygate/storage"
	"xdao.co/keygate/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "genkey":
		return cmdGenKey(args[1:], out, errOut)
	case "seal":
		return cmdSeal(args[1:], out, errOut)
	case "open":
		return cmdOpen(args[1:], out, errOut)
	case "wrap":
		return cmdWrap(args[1:], out, errOut)
	case "set-key":
		return cmdSetKey(args[1:], out, errOut)
	case "subscribe":
		return cmdSubscribe(args[1:], out, errOut)
	case "grant":
		return cmdGrant(args[1:], out, errOut)
	case "details":
		return cmdDetails(args[1:], out, errOut)
	case "update-params":
		return cmdUpdateParams(args[1:], out, errOut)
	case "withdraw":
		return cmdWithdraw(args[1:], out, errOut)
	case "claim-refund":
		return cmdClaimRefund(args[1:], out, errOut)
	case "status":
		return cmdStatus(args[1:], out, errOut)
	case "reveal":
		return cmdReveal(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "keygate: subscription-gated key custody CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  keygate key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  keygate key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  keygate key show --name <name> [--role <role>]")
	fmt.Fprintln(w, "  keygate genkey")
	fmt.Fprintln(w, "  keygate seal --key-hex <64hex> [--title <t>] [--subtitle <s>] [--store-dir <dir>] <file>")
	fmt.Fprintln(w, "  keygate open --key-hex <64hex> <envelope-file>")
	fmt.Fprintln(w, "  keygate wrap --key-hex <64hex> --service-key <x25519:...> --out <file>")
	fmt.Fprintln(w, "  keygate set-key --addr <host:port> --name <name> --wrapped <file>")
	fmt.Fprintln(w, "  keygate subscribe --addr <host:port> --name <name> --pay <units>")
	fmt.Fprintln(w, "  keygate grant --addr <host:port> --name <name> --identity <0xhex> --duration <seconds>")
	fmt.Fprintln(w, "  keygate details --addr <host:port> --identity <0xhex>")
	fmt.Fprintln(w, "  keygate update-params --addr <host:port> --name <name> --price <units> --duration <seconds>")
	fmt.Fprintln(w, "  keygate withdraw --addr <host:port> --name <name>")
	fmt.Fprintln(w, "  keygate claim-refund --addr <host:port> --name <name>")
	fmt.Fprintln(w, "  keygate status --addr <host:port>")
	fmt.Fprintln(w, "  keygate reveal --addr <host:port> --name <name> --handle <cid> [--handle ...] [--store-dir <dir>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - keys live under ~/.keygate/keys/<name> (0600 seed files); --keys-dir overrides")
	fmt.Fprintln(w, "  - remote commands sign nothing except reveal; the admin service trusts the named caller")
	fmt.Fprintln(w, "  - seal with --store-dir writes the envelope into the store and prints its handle")
	fmt.Fprintln(w, "  - reveal with --store-dir decrypts the stored envelopes and writes plaintext to stdout")
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: keygate key <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: init, derive, show")
		return 2
	}
	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("key init", flag.ContinueOnError)
		fs.SetOutput(errOut)
		keysDir := fs.String("keys-dir", "", "key store directory")
		name := fs.String("name", "", "key name")
		seedHex := fs.String("seed-hex", "", "explicit 32-byte seed (64 hex chars)")
		force := fs.Bool("force", false, "overwrite an existing key")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *name == "" {
			fmt.Fprintln(errOut, "usage: keygate key init --name <name> [--seed-hex <64hex>] [--force]")
			return 2
		}
		seed := make([]byte, ed25519.SeedSize)
		if *seedHex != "" {
			var err error
			seed, err = keys.ParseSeedHex(*seedHex)
			if err != nil {
				fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
				return 1
			}
		} else if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "seed generation: %v\n", err)
			return 1
		}
		ks, err := keys.OpenKeyStore(*keysDir)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		signerKey, filePath, err := ks.InitializeRootKey(*name, seed, *force)
		if err != nil {
			fmt.Fprintf(errOut, "init key: %v\n", err)
			return 1
		}
		identity, _ := keys.IdentityFromSignerKey(signerKey)
		fmt.Fprintf(out, "key: %s\nidentity: %s\nfile: %s\n", signerKey, identity, filePath)
		return 0
	case "derive":
		fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
		fs.SetOutput(errOut)
		keysDir := fs.String("keys-dir", "", "key store directory")
		from := fs.String("from", "", "root key name")
		role := fs.String("role", "", "role to derive")
		force := fs.Bool("force", false, "overwrite an existing role key")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *from == "" || *role == "" {
			fmt.Fprintln(errOut, "usage: keygate key derive --from <name> --role <role> [--force]")
			return 2
		}
		ks, err := keys.OpenKeyStore(*keysDir)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		signerKey, filePath, err := ks.DeriveRoleKey(*from, *role, *force)
		if err != nil {
			fmt.Fprintf(errOut, "derive key: %v\n", err)
			return 1
		}
		identity, _ := keys.IdentityFromSignerKey(signerKey)
		fmt.Fprintf(out, "key: %s\nidentity: %s\nfile: %s\n", signerKey, identity, filePath)
		return 0
	case "show":
		fs := flag.NewFlagSet("key show", flag.ContinueOnError)
		fs.SetOutput(errOut)
		keysDir := fs.String("keys-dir", "", "key store directory")
		name := fs.String("name", "", "key name")
		role := fs.String("role", "", "role (optional)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *name == "" {
			fmt.Fprintln(errOut, "usage: keygate key show --name <name> [--role <role>]")
			return 2
		}
		ks, err := keys.OpenKeyStore(*keysDir)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		seed, err := ks.LoadSeed("", *name, *role, "")
		if err != nil {
			fmt.Fprintf(errOut, "load key: %v\n", err)
			return 1
		}
		signerKey := keys.SignerKeyFromSeed(seed)
		identity, _ := keys.IdentityFromSignerKey(signerKey)
		fmt.Fprintf(out, "key: %s\nidentity: %s\n", signerKey, identity)
		if *role == "reveal" {
			if pub, _, err := keys.BoxKeypairFromSeed(seed); err == nil {
				fmt.Fprintf(out, "box-key: %s\n", keys.BoxKeyString(pub))
			}
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n", args[0])
		return 2
	}
}

func cmdGenKey(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("genkey", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	key, err := envelope.GenerateKey()
	if err != nil {
		fmt.Fprintf(errOut, "key generation: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, hex.EncodeToString(key))
	return 0
}

func parseKeyHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, err
	}
	if len(key) != envelope.KeySize {
		return nil, fmt.Errorf("custody key must be %d bytes (%d hex chars)", envelope.KeySize, 2*envelope.KeySize)
	}
	return key, nil
}

func cmdSeal(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("seal", flag.ContinueOnError)
	fs.SetOutput(errOut)
	keyHex := fs.String("key-hex", "", "custody key (64 hex chars)")
	title := fs.String("title", "", "public title")
	subtitle := fs.String("subtitle", "", "public subtitle")
	storeDir := fs.String("store-dir", "", "envelope store directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *keyHex == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keygate seal --key-hex <64hex> [--title <t>] [--subtitle <s>] [--store-dir <dir>] <file>")
		return 2
	}
	key, err := parseKeyHex(*keyHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --key-hex: %v\n", err)
		return 1
	}
	plaintext, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", fs.Arg(0), err)
		return 1
	}
	env, err := envelope.Seal(plaintext, key, envelope.Metadata{
		Title:    *title,
		Subtitle: *subtitle,
		Date:     time.Now(),
	})
	if err != nil {
		fmt.Fprintf(errOut, "seal: %v\n", err)
		return 1
	}
	raw, err := env.Marshal()
	if err != nil {
		fmt.Fprintf(errOut, "marshal: %v\n", err)
		return 1
	}
	if *storeDir == "" {
		_, _ = out.Write(raw)
		return 0
	}
	store, err := localfs.New(*storeDir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	id, err := store.Put(raw)
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, id.String())
	return 0
}

func cmdOpen(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(errOut)
	keyHex := fs.String("key-hex", "", "custody key (64 hex chars)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *keyHex == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keygate open --key-hex <64hex> <envelope-file>")
		return 2
	}
	key, err := parseKeyHex(*keyHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --key-hex: %v\n", err)
		return 1
	}
	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", fs.Arg(0), err)
		return 1
	}
	env, err := envelope.Unmarshal(raw)
	if err != nil {
		fmt.Fprintf(errOut, "parse: %v\n", err)
		return 1
	}
	plaintext, err := envelope.Open(env, key)
	if err != nil {
		fmt.Fprintf(errOut, "open: %v\n", err)
		return 1
	}
	_, _ = out.Write(plaintext)
	return 0
}

func cmdWrap(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("wrap", flag.ContinueOnError)
	fs.SetOutput(errOut)
	keyHex := fs.String("key-hex", "", "custody key (64 hex chars)")
	serviceKey := fs.String("service-key", "", "service box key (x25519:base64)")
	outPath := fs.String("out", "", "write wrapped ciphertext to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *keyHex == "" || *serviceKey == "" || *outPath == "" {
		fmt.Fprintln(errOut, "usage: keygate wrap --key-hex <64hex> --service-key <x25519:...> --out <file>")
		return 2
	}
	key, err := parseKeyHex(*keyHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --key-hex: %v\n", err)
		return 1
	}
	pub, err := keys.ParseBoxKey(*serviceKey)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --service-key: %v\n", err)
		return 1
	}
	wrapped, err := keys.WrapToBoxKey(key, pub)
	if err != nil {
		fmt.Fprintf(errOut, "wrap: %v\n", err)
		return 1
	}
	if err := os.WriteFile(*outPath, wrapped, 0o600); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", *outPath, err)
		return 1
	}
	fmt.Fprintf(out, "proof: %s\n", storage.HandleString(wrapped))
	return 0
}

func identityFromNamedKey(keysDir, name, role string) (keys.Identity, ed25519.PrivateKey, error) {
	ks, err := keys.OpenKeyStore(keysDir)
	if err != nil {
		return keys.ZeroIdentity, nil, err
	}
	seed, err := ks.LoadSeed("", name, role, "")
	if err != nil {
		return keys.ZeroIdentity, nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	identity, err := keys.IdentityFromSignerKey(keys.SignerKeyFromSeed(seed))
	if err != nil {
		return keys.ZeroIdentity, nil, err
	}
	return identity, priv, nil
}

func dialLedger(addr string) (*ledgerd.Client, error) {
	client, err := ledgerd.Dial(addr, ledgerd.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	client.Timeout = 10 * time.Second
	return client, nil
}

func cmdSetKey(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("set-key", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "127.0.0.1:7788", "daemon address")
	keysDir := fs.String("keys-dir", "", "key store directory")
	name := fs.String("name", "", "owner key name")
	role := fs.String("role", "", "owner key role")
	wrappedPath := fs.String("wrapped", "", "wrapped custody key file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" || *wrappedPath == "" {
		fmt.Fprintln(errOut, "usage: keygate set-key --addr <host:port> --name <name> --wrapped <file>")
		return 2
	}
	identity, _, err := identityFromNamedKey(*keysDir, *name, *role)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	wrapped, err := os.ReadFile(*wrappedPath)
	if err != nil {
		fmt.Fprintf(errOut, "read --wrapped: %v\n", err)
		return 1
	}
	client, err := dialLedger(*addr)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()
	resp, err := client.SetKey(context.Background(), ledgerd.SetKeyRequest{
		Caller:  identity.String(),
		Wrapped: wrapped,
		Proof:   storage.HandleString(wrapped),
	})
	if err != nil {
		fmt.Fprintf(errOut, "set-key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "deposited (proof %s)\n", resp.Proof)
	return 0
}

func cmdSubscribe(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("subscribe", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "127.0.0.1:7788", "daemon address")
	keysDir := fs.String("keys-dir", "", "key store directory")
	name := fs.String("name", "", "subscriber key name")
	role := fs.String("role", "", "subscriber key role")
	pay := fs.Uint64("pay", 0, "payment in units")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(errOut, "usage: keygate subscribe --addr <host:port> --name <name> --pay <units>")
		return 2
	}
	identity, _, err := identityFromNamedKey(*keysDir, *name, *role)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	client, err := dialLedger(*addr)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()
	receipt, err := client.Subscribe(context.Background(), ledgerd.SubscribeRequest{
		Identity: identity.String(),
		Payment:  *pay,
	})
	if err != nil {
		fmt.Fprintf(errOut, "subscribe: %v\n", err)
		return 1
	}
	verb := "subscribed"
	if receipt.Renewed {
		verb = "renewed"
	}
	fmt.Fprintf(out, "%s %s until %s (paid %d, refund %d)\n",
		verb, receipt.Identity, time.Unix(int64(receipt.Expiration), 0).UTC().Format(time.RFC3339),
		receipt.Paid, receipt.Refund)
	if receipt.RefundOwed {
		fmt.Fprintf(errOut, "refund transfer failed; %d units owed, run keygate claim-refund\n", receipt.Refund)
	}
	return 0
}

func cmdGrant(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("grant", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "127.0.0.1:7788", "daemon address")
	keysDir := fs.String("keys-dir", "", "key store directory")
	name := fs.String("name", "", "owner key name")
	role := fs.String("role", "", "owner key role")
	identityFlag := fs.String("identity", "", "grantee identity (0x-hex)")
	duration := fs.Uint64("duration", 0, "grant duration in seconds")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" || *identityFlag == "" {
		fmt.Fprintln(errOut, "usage: keygate grant --addr <host:port> --name <name> --identity <0xhex> --duration <seconds>")
		return 2
	}
	caller, _, err := identityFromNamedKey(*keysDir, *name, *role)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	client, err := dialLedger(*addr)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()
	receipt, err := client.Grant(context.Background(), ledgerd.GrantRequest{
		Caller:   caller.String(),
		Identity: *identityFlag,
		Duration: *duration,
	})
	if err != nil {
		fmt.Fprintf(errOut, "grant: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "granted %s until %s\n",
		receipt.Identity, time.Unix(int64(receipt.Expiration), 0).UTC().Format(time.RFC3339))
	return 0
}

func cmdDetails(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("details", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "127.0.0.1:7788", "daemon address")
	identityFlag := fs.String("identity", "", "identity (0x-hex)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *identityFlag == "" {
		fmt.Fprintln(errOut, "usage: keygate details --addr <host:port> --identity <0xhex>")
		return 2
	}
	client, err := dialLedger(*addr)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()
	details, err := client.Details(context.Background(), ledgerd.DetailsRequest{Identity: *identityFlag})
	if err != nil {
		fmt.Fprintf(errOut, "details: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "identity: %s\n", details.Identity)
	if details.Expiration == 0 {
		fmt.Fprintln(out, "subscription: never subscribed")
	} else {
		fmt.Fprintf(out, "subscription: expires %s (valid=%t)\n",
			time.Unix(int64(details.Expiration), 0).UTC().Format(time.RFC3339), details.Valid)
	}
	fmt.Fprintf(out, "capability: %t\n", details.Capability)
	return 0
}

func cmdUpdateParams(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("update-params", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "127.0.0.1:7788", "daemon address")
	keysDir := fs.String("keys-dir", "", "key store directory")
	name := fs.String("name", "", "owner key name")
	role := fs.String("role", "", "owner key role")
	price := fs.Uint64("price", 0, "new price in units")
	duration := fs.Uint64("duration", 0, "new duration in seconds")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(errOut, "usage: keygate update-params --addr <host:port> --name <name> --price <units> --duration <seconds>")
		return 2
	}
	caller, _, err := identityFromNamedKey(*keysDir, *name, *role)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	client, err := dialLedger(*addr)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()
	if _, err := client.UpdateParams(context.Background(), ledgerd.UpdateParamsRequest{
		Caller:   caller.String(),
		Price:    *price,
		Duration: *duration,
	}); err != nil {
		fmt.Fprintf(errOut, "update-params: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "params updated: price=%d duration=%d\n", *price, *duration)
	return 0
}

func cmdWithdraw(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "127.0.0.1:7788", "daemon address")
	keysDir := fs.String("keys-dir", "", "key store directory")
	name := fs.String("name", "", "owner key name")
	role := fs.String("role", "", "owner key role")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(errOut, "usage: keygate withdraw --addr <host:port> --name <name>")
		return 2
	}
	caller, _, err := identityFromNamedKey(*keysDir, *name, *role)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	client, err := dialLedger(*addr)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()
	resp, err := client.Withdraw(context.Background(), ledgerd.WithdrawRequest{Caller: caller.String()})
	if err != nil {
		fmt.Fprintf(errOut, "withdraw: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "withdrew %d units\n", resp.Amount)
	return 0
}

func cmdClaimRefund(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("claim-refund", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "127.0.0.1:7788", "daemon address")
	keysDir := fs.String("keys-dir", "", "key store directory")
	name := fs.String("name", "", "claimant key name")
	role := fs.String("role", "", "claimant key role")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(errOut, "usage: keygate claim-refund --addr <host:port> --name <name>")
		return 2
	}
	caller, _, err := identityFromNamedKey(*keysDir, *name, *role)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	client, err := dialLedger(*addr)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()
	resp, err := client.ClaimRefund(context.Background(), ledgerd.ClaimRefundRequest{Identity: caller.String()})
	if err != nil {
		fmt.Fprintf(errOut, "claim-refund: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "refunded %d units\n", resp.Amount)
	return 0
}

func cmdStatus(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "127.0.0.1:7788", "daemon address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	client, err := dialLedger(*addr)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()
	st, err := client.Status(context.Background())
	if err != nil {
		fmt.Fprintf(errOut, "status: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "owner: %s\nprice: %d\nduration: %d\nrevenue: %d\nkey-set: %t\n",
		st.Owner, st.Price, st.Duration, st.Revenue, st.KeySet)
	return 0
}

func cmdReveal(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("reveal", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "127.0.0.1:7788", "daemon address")
	keysDir := fs.String("keys-dir", "", "key store directory")
	name := fs.String("name", "", "caller key name")
	role := fs.String("role", "", "caller key role")
	storeDir := fs.String("store-dir", "", "local envelope store; when set the plaintext is written out")
	var handles multiFlag
	fs.Var(&handles, "handle", "envelope handle (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" || len(handles) == 0 {
		fmt.Fprintln(errOut, "usage: keygate reveal --addr <host:port> --name <name> --handle <cid> [--handle ...] [--store-dir <dir>]")
		return 2
	}

	_, priv, err := identityFromNamedKey(*keysDir, *name, *role)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	ledgerClient, err := dialLedger(*addr)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer ledgerClient.Close()
	st, err := ledgerClient.Status(context.Background())
	if err != nil {
		fmt.Fprintf(errOut, "status: %v\n", err)
		return 1
	}
	resource, err := keys.ParseIdentity(st.Owner)
	if err != nil {
		fmt.Fprintf(errOut, "daemon returned a malformed owner identity: %v\n", err)
		return 1
	}

	revealClient, err := reveald.Dial(*addr, reveald.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer revealClient.Close()
	revealClient.Timeout = 10 * time.Second

	opts := []handshake.Option{handshake.WithRetry(3, time.Second)}
	if *storeDir != "" {
		store, err := localfs.New(*storeDir)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		opts = append(opts, handshake.WithStore(store))
	}
	h := handshake.New(revealClient, resource, priv, opts...)

	ctx := context.Background()
	if *storeDir != "" {
		plaintexts, err := h.Open(ctx, handles)
		if err != nil {
			fmt.Fprintf(errOut, "reveal: %v\n", err)
			return 1
		}
		for _, pt := range plaintexts {
			_, _ = out.Write(pt)
		}
		return 0
	}
	key, err := h.RequestKey(ctx, handles)
	if err != nil {
		fmt.Fprintf(errOut, "reveal: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, hex.EncodeToString(key))
	return 0
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("empty handle")
	}
	// Validate the handle shape early so a typo fails before any RPC.
	if _, err := storage.ParseHandle(v); err != nil {
		return fmt.Errorf("invalid handle %q", v)
	}
	*m = append(*m, v)
	return nil
}
