// Package gsuite wraps the Google Drive and Sheets APIs used for
// registration record-keeping: selfies land in a Drive folder and one
// audit row per registration is appended to a shared spreadsheet.
package gsuite

import (
	"bytes"
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client holds authenticated Drive and Sheets services.
type Client struct {
	drive    *drive.Service
	sheets   *sheets.Service
	folderID string
	sheetID  string
}

// New builds a client from service-account credentials JSON.
func New(ctx context.Context, credentialsJSON []byte, folderID, sheetID string) (*Client, error) {
	opts := []option.ClientOption{
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(drive.DriveFileScope, sheets.SpreadsheetsScope),
	}

	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init drive service: %w", err)
	}
	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init sheets service: %w", err)
	}

	return &Client{
		drive:    driveSvc,
		sheets:   sheetsSvc,
		folderID: folderID,
		sheetID:  sheetID,
	}, nil
}

// UploadSelfie stores the image in the configured folder, makes it
// link-viewable and returns the public link.
func (c *Client) UploadSelfie(ctx context.Context, data []byte, name, mimeType string) (string, error) {
	meta := &drive.File{Name: name, Parents: []string{c.folderID}}
	created, err := c.drive.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id, webViewLink").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}

	_, err = c.drive.Permissions.Create(created.Id, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive permission: %w", err)
	}

	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

// AppendRow appends one row to the audit spreadsheet.
func (c *Client) AppendRow(ctx context.Context, row []string) error {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	_, err := c.sheets.Spreadsheets.Values.Append(c.sheetID, "Sheet1!A:Z", &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	return nil
}
