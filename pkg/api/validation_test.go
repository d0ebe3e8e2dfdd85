package api

import "testing"

func validInput() ConnectionInput {
	return ConnectionInput{
		Name:           "docs",
		DBPath:         "/data/.chroma",
		CollectionName: "usage-guides",
		EmbeddingModel: "all-MiniLM-L6-v2",
	}
}

func TestValidateConnectionInput(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(in *ConnectionInput)
		wantErr   bool
		wantParam string
	}{
		{"valid", func(in *ConnectionInput) {}, false, ""},
		{"description optional", func(in *ConnectionInput) { in.Description = "" }, false, ""},
		{"missing name", func(in *ConnectionInput) { in.Name = "" }, true, "name"},
		{"blank name", func(in *ConnectionInput) { in.Name = "   " }, true, "name"},
		{"missing db_path", func(in *ConnectionInput) { in.DBPath = "" }, true, "db_path"},
		{"missing collection_name", func(in *ConnectionInput) { in.CollectionName = "" }, true, "collection_name"},
		{"missing embedding_model", func(in *ConnectionInput) { in.EmbeddingModel = "\t" }, true, "embedding_model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.modify(&in)
			err := ValidateConnectionInput(in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateConnectionInput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if err.Type != ErrorTypeInvalidRequest {
				t.Errorf("Type = %q, want %q", err.Type, ErrorTypeInvalidRequest)
			}
			if err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", err.Param, tt.wantParam)
			}
			if err.Message != tt.wantParam+" is required" {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantParam+" is required")
			}
		})
	}
}
