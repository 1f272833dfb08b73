package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/DataDog/netacld/internal/deploy/sshclient"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/revision"
)

// httpCopyGenerators are the device families whose IOS-XE-style "copy"
// command can pull the rendered config directly from the API instead of
// having it streamed line by line, per spec §4.8.
var httpCopyGenerators = map[model.GeneratorKind]bool{
	model.GeneratorCisco:     true,
	model.GeneratorCiscoNXOS: true,
}

// NetmikoAdaptor pushes a RevisionConfig over SSH the way the original
// Netmiko-based worker did: enter enable mode, either issue an HTTP copy for
// Cisco IOS/NX-OS targets or send the config line by line, save, disconnect.
type NetmikoAdaptor struct {
	// APIURLEnvVar names the env var carrying the base URL devices can pull
	// rendered configs from. When unset or empty the HTTP-copy fast path is
	// skipped even for an eligible generator.
	APIURLEnvVar string
}

func (a NetmikoAdaptor) Deploy(ctx context.Context, deployer model.Deployer, target model.Target, cfg model.RevisionConfig, revisionID string, sink *LogSink, env EnvLookup) error {
	if deployer.SSH == nil {
		return fmt.Errorf("netmiko deployer %s has no ssh config", deployer.ID)
	}
	sc := deployer.SSH

	password, _ := env(sc.PasswordEnvVar)
	enablePassword, _ := env(sc.EnableEnvVar)
	key, _ := env(sc.KeyEnvVar)

	sink.Logf("connecting to %s (%s) as %s", sc.Host, target.Generator, sc.User)
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

	if err := enterEnableMode(client, enablePassword, target.Generator); err != nil {
		return err
	}

	apiURL, haveAPIURL := env(a.APIURLEnvVar)
	if haveAPIURL && apiURL != "" && httpCopyGenerators[target.Generator] {
		hash := revision.ConfigHash(cfg.Config)
		copyCmd := fmt.Sprintf("copy %s/revisions/%s/raw_config/%s/%s running-config", strings.TrimRight(apiURL, "/"), revisionID, cfg.TargetID, hash)
		sink.Logf("pulling config via HTTP copy: %s", copyCmd)
		if _, stderr, err := client.Run(copyCmd); err != nil {
			return fmt.Errorf("http copy failed: %w (%s)", err, stderr)
		}
	} else {
		sink.Logf("pushing config line by line (%d lines)", len(strings.Split(cfg.Config, "\n")))
		for _, line := range strings.Split(cfg.Config, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, stderr, err := client.Run(line); err != nil {
				return fmt.Errorf("config line %q failed: %w (%s)", line, err, stderr)
			}
		}
	}

	if err := saveConfig(client, target.Generator); err != nil {
		return err
	}
	sink.Logf("disconnecting from %s", sc.Host)
	return nil
}

// enterEnableMode issues the enable sequence and aborts the deployment if
// the device does not end up in privileged/configuration mode, per spec
// §4.8: "Connect; enter enable mode; if not in enable mode, abort."
func enterEnableMode(client *sshclient.Client, enablePassword string, generator model.GeneratorKind) error {
	if generator == model.GeneratorJuniper || generator == model.GeneratorNftables {
		return nil // no enable concept on these targets
	}
	if _, _, err := client.Run("enable"); err != nil {
		return fmt.Errorf("enable failed: %w", err)
	}
	if enablePassword != "" {
		if _, _, err := client.Run(enablePassword); err != nil {
			return fmt.Errorf("enable password rejected: %w", err)
		}
	}
	out, _, err := client.Run("show privilege")
	if err != nil {
		return fmt.Errorf("could not verify privilege level: %w", err)
	}
	if !strings.Contains(out, "15") {
		return fmt.Errorf("device did not enter enable mode")
	}
	return nil
}

func saveConfig(client *sshclient.Client, generator model.GeneratorKind) error {
	cmd := "write memory"
	if generator == model.GeneratorCiscoNXOS {
		cmd = "copy running-config startup-config"
	}
	if _, stderr, err := client.Run(cmd); err != nil {
		return fmt.Errorf("save config failed: %w (%s)", err, stderr)
	}
	return nil
}
