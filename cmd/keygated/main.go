package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"xdao.co/keygate/keys"
	"xdao.co/keygate/ledger"
	"xdao.co/keygate/ledgerd"
	"xdao.co/keygate/reveald"
	"xdao.co/keygate/storage"
	"xdao.co/keygate/storage/localfs"
	"xdao.co/keygate/storage/memstore"
)

func main() {
	fs := flag.NewFlagSet("keygated", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7788", "listen address")
	keysDir := fs.String("keys-dir", "", "key store directory (default ~/.keygate/keys)")
	keyName := fs.String("key-name", "service", "named key holding the daemon's seeds")
	ownerFlag := fs.String("owner", "", "owner identity (0x-hex); defaults to the key's sign-role identity")
	price := fs.Uint64("price", 0, "subscription price in units")
	duration := fs.Uint64("duration", 2592000, "subscription duration in seconds")
	storeDir := fs.String("store-dir", "", "envelope store directory; empty serves from memory")

	_ = fs.Parse(os.Args[1:])

	ks, err := keys.OpenKeyStore(*keysDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// The reveal keypair is derived from the key's reveal role, so a restart
	// keeps opening ciphertext wrapped before it.
	revealSeed, err := ks.LoadSeed("", *keyName, "reveal", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load reveal key: %v (run: keygate key init --name %s && keygate key derive --from %s --role reveal)\n", err, *keyName, *keyName)
		os.Exit(2)
	}
	servicePub, servicePriv, err := keys.BoxKeypairFromSeed(revealSeed)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	owner := keys.ZeroIdentity
	if *ownerFlag != "" {
		owner, err = keys.ParseIdentity(*ownerFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --owner: %v\n", err)
			os.Exit(2)
		}
	} else {
		signSeed, err := ks.LoadSeed("", *keyName, "sign", "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "load sign key: %v (or pass --owner)\n", err)
			os.Exit(2)
		}
		owner, err = keys.IdentityFromSignerKey(keys.SignerKeyFromSeed(signSeed))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	l, err := ledger.New(owner, ledger.Params{Price: *price, Duration: *duration})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var store storage.Store
	if *storeDir != "" {
		lfs, err := localfs.New(*storeDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		corrupted, err := lfs.Verify()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		for _, id := range corrupted {
			fmt.Fprintf(os.Stderr, "keygated: stored envelope %s is corrupted; re-put it before serving reveals for it\n", id)
		}
		store = lfs
	} else {
		store = memstore.New()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	reveald.RegisterRevealServer(s, &reveald.Server{
		Ledger:      l,
		Resource:    owner,
		ServicePub:  servicePub,
		ServicePriv: servicePriv,
		Envelopes:   store,
	})
	ledgerd.RegisterLedgerServer(s, &ledgerd.Server{Ledger: l})

	fmt.Fprintf(os.Stderr, "keygated listening on %s (owner=%s service-key=%s)\n",
		lis.Addr().String(), owner, keys.BoxKeyString(servicePub))
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
