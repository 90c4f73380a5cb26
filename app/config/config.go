package config

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/gallerybot/core/config"
)

// GalleryConfig names the gated group and the public channel.
type GalleryConfig struct {
	GroupID   int64 `yaml:"group_id" envconfig:"GALLERY_GROUP_ID"`
	ChannelID int64 `yaml:"channel_id" envconfig:"GALLERY_CHANNEL_ID"`
	// GroupInviteLink is shown to non-members when the group has no public username.
	GroupInviteLink string `yaml:"group_invite_link" envconfig:"GALLERY_GROUP_INVITE_LINK"`
	// Fallback titles used when getChat fails.
	GroupTitle   string `yaml:"group_title" envconfig:"GALLERY_GROUP_TITLE"`
	ChannelTitle string `yaml:"channel_title" envconfig:"GALLERY_CHANNEL_TITLE"`
}

// Config is the full gallerybot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`
	Gallery           GalleryConfig `yaml:"gallery"`
}

// CoreConfig exposes the reusable core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays environment variables and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := normalizeGallery(&cfg.Gallery); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalizeGallery(g *GalleryConfig) error {
	if g.GroupID == 0 {
		return fmt.Errorf("gallery.group_id is required")
	}
	if g.ChannelID == 0 {
		return fmt.Errorf("gallery.channel_id is required")
	}
	g.GroupInviteLink = strings.TrimSpace(g.GroupInviteLink)
	if strings.TrimSpace(g.GroupTitle) == "" {
		g.GroupTitle = "the group"
	}
	if strings.TrimSpace(g.ChannelTitle) == "" {
		g.ChannelTitle = "the gallery"
	}
	return nil
}
