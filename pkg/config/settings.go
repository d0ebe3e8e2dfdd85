package config

// Settings is the subset of the configuration shown and edited on the
// settings page. The JSON names are the ones earlier releases used.
type Settings struct {
	DBPath         string `json:"chroma_db_path"`
	CollectionName string `json:"collection_name"`
	EmbeddingModel string `json:"embedding_model"`
	Debug          bool   `json:"flask_debug"`
	Host           string `json:"flask_host"`
	Port           int    `json:"flask_port"`
}

// SettingsPatch lists settings to change. Nil fields are kept.
type SettingsPatch struct {
	DBPath         *string `json:"chroma_db_path"`
	CollectionName *string `json:"collection_name"`
	EmbeddingModel *string `json:"embedding_model"`
	Debug          *bool   `json:"flask_debug"`
	Host           *string `json:"flask_host"`
	Port           *int    `json:"flask_port"`
}

// Settings returns the editable view of c.
func (c *Config) Settings() Settings {
	return Settings{
		DBPath:         c.Database.Path,
		CollectionName: c.Database.Collection,
		EmbeddingModel: c.Database.EmbeddingModel,
		Debug:          c.Server.Debug,
		Host:           c.Server.Host,
		Port:           c.Server.Port,
	}
}

// Apply returns a validated copy of c with p applied. c is left untouched.
func (c *Config) Apply(p SettingsPatch) (*Config, error) {
	next := c.Clone()
	if p.DBPath != nil {
		next.Database.Path = *p.DBPath
	}
	if p.CollectionName != nil {
		next.Database.Collection = *p.CollectionName
	}
	if p.EmbeddingModel != nil {
		next.Database.EmbeddingModel = *p.EmbeddingModel
	}
	if p.Debug != nil {
		next.Server.Debug = *p.Debug
	}
	if p.Host != nil {
		next.Server.Host = *p.Host
	}
	if p.Port != nil {
		next.Server.Port = *p.Port
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}
