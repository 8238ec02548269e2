package credential

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Azure fetches tokens through the default Azure credential chain
// (environment, workload identity, managed identity, az CLI, ...).
type Azure struct {
	cred  azcore.TokenCredential
	scope string
}

// NewAzure builds the default credential chain for the given scope.
func NewAzure(scope string) (*Azure, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return &Azure{cred: cred, scope: scope}, nil
}

func (a *Azure) Fetch(ctx context.Context) (Token, error) {
	tok, err := a.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{a.scope}})
	if err != nil {
		return Token{}, err
	}
	return Token{Value: tok.Token, ExpiresOn: tok.ExpiresOn}, nil
}
