package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/DataDog/netacld/internal/deploy/sshclient"
	"github.com/DataDog/netacld/internal/model"
)

// remoteConfigDir is where rendered nftables rulesets are staged on the
// remote host before being validated and loaded, per spec §4.8.
const remoteConfigDir = "/opt/nft"

// ProxmoxAdaptor pushes an nftables ruleset to a remote host over SSH: write
// the file, validate it with "nft -c -f", then replace the bridge filter
// table's contents.
type ProxmoxAdaptor struct{}

func (ProxmoxAdaptor) Deploy(ctx context.Context, deployer model.Deployer, target model.Target, cfg model.RevisionConfig, revisionID string, sink *LogSink, env EnvLookup) error {
	if deployer.SSH == nil {
		return fmt.Errorf("proxmox_nft deployer %s has no ssh config", deployer.ID)
	}
	sc := deployer.SSH

	password, _ := env(sc.PasswordEnvVar)
	key, _ := env(sc.KeyEnvVar)

	sink.Logf("connecting to %s as %s", sc.Host, sc.User)
	client, err := sshclient.Dial(sshclient.Config{
		Host:     sc.Host,
		Port:     sc.Port,
		User:     sc.User,
		Password: password,
		KeyPEM:   key,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	remotePath := remoteConfigDir + "/" + cfg.Filename
	sink.Logf("writing ruleset to %s", remotePath)
	if err := client.WriteFile(remotePath, []byte(cfg.Config), 0o644); err != nil {
		return fmt.Errorf("writing ruleset failed: %w", err)
	}

	sink.Logf("validating ruleset")
	if err := runNft(client, fmt.Sprintf("nft -c -f %s", remotePath)); err != nil {
		return fmt.Errorf("ruleset validation failed: %w", err)
	}

	filterName := cfg.FilterName
	sink.Logf("swapping bridge table %s", filterName)
	if err := runNft(client, fmt.Sprintf("nft add table bridge %s", filterName)); err != nil {
		return fmt.Errorf("add table failed: %w", err)
	}
	if err := runNft(client, fmt.Sprintf("nft flush table bridge %s", filterName)); err != nil {
		return fmt.Errorf("flush table failed: %w", err)
	}
	if err := runNft(client, fmt.Sprintf("nft -f %s", remotePath)); err != nil {
		return fmt.Errorf("load ruleset failed: %w", err)
	}
	return nil
}

// runNft treats any non-empty stderr as failure, matching how the original
// worker judged nft's exit status.
func runNft(client *sshclient.Client, cmd string) error {
	_, stderr, err := client.Run(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(stderr) != "" {
		return fmt.Errorf("%s", strings.TrimSpace(stderr))
	}
	return nil
}
